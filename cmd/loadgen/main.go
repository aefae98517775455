package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/crux/internal/loadgen"
)

// Default configuration constants.
const (
	defaultSessions   = 100
	defaultFrames     = 900 // 30 seconds at 30fps
	defaultBatchSize  = 60
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions   = flag.Int("sessions", defaultSessions, "Number of sessions to run")
		frames     = flag.Int("frames", defaultFrames, "Frames per session")
		batchSize  = flag.Int("batch", defaultBatchSize, "Frames per upload batch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for collected report summaries")
		logFile    = flag.String("log", "", "Log file for run output (default: loadgen_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every finished session")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadgen.Config{
		BaseURL:    *baseURL,
		Sessions:   *sessions,
		Frames:     *frames,
		BatchSize:  *batchSize,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := loadgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
