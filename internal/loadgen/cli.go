package loadgen

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/crux/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "loadgen_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`Crux Session Load Generator
===========================

Drives concurrent synthetic climbing sessions through the assessment API:
open, stream pose frames, complete, poll for the report.

Usage:
  go run cmd/loadgen/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to run (default 100)
  -frames int
        Frames per session (default 900, 30 seconds at 30fps)
  -batch int
        Frames per upload batch (default 60)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for collected report summaries (default: none)
  -log string
        Log file for run output (default: loadgen_TIMESTAMP.log)
  -verbose
        Log every finished session
  -help
        Show this help message

Examples:
  # Run with default settings
  go run cmd/loadgen/main.go

  # Heavier run against a remote instance
  go run cmd/loadgen/main.go -sessions 1000 -workers 16 -url http://crux:9080

  # Short sessions, keep the reports
  go run cmd/loadgen/main.go -frames 300 -output reports.json
`)
}
