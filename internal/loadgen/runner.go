package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/crux/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Report polling configuration.
const (
	reportPollInterval = 100 * time.Millisecond
	reportPollTimeout  = 30 * time.Second
)

// Run executes the complete load run.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
		Grades:    make(map[string]int),
	}

	logger.Get().Info(ctx, "starting crux load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.Sessions),
		logger.Int("frames", config.Frames),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	reports, err := runSessions(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("session run failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveReportsToFile(ctx, config, reports); err != nil {
			logger.Get().Warn(ctx, "failed to save reports to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.SessionsFailed > 0 {
		return fmt.Errorf("%w: %d of %d sessions failed", ErrRunFailed, stats.SessionsFailed, config.Sessions)
	}

	logger.Get().Info(ctx, "load run completed successfully")
	return nil
}

// runSessions drives the full lifecycle of every session through a worker
// pool and collects the finished reports.
func runSessions(ctx context.Context, config *Config, stats *Stats) ([]reportSummary, error) {
	client := newHTTPClient(config.Timeout)

	var (
		started   int64
		completed int64
		failed    int64
		accepted  int64
		dropped   int64
	)

	var mu sync.Mutex
	reports := make([]reportSummary, 0, config.Sessions)

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := config.Workers
	if workers > config.Sessions {
		workers = config.Sessions
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&started, 1)
				report, acc, drop, err := runSingleSession(ctx, client, config)
				atomic.AddInt64(&accepted, int64(acc))
				atomic.AddInt64(&dropped, int64(drop))
				if err != nil {
					atomic.AddInt64(&failed, 1)
					logger.Get().Warn(ctx, "session failed", logger.Error(err))
					continue
				}

				atomic.AddInt64(&completed, 1)
				mu.Lock()
				reports = append(reports, *report)
				stats.Grades[report.Profile.Grade]++
				mu.Unlock()

				if config.Verbose {
					logger.Get().Info(ctx, "session finished",
						logger.String("sessionID", report.SessionID),
						logger.Float64("overall", report.Profile.OverallScore),
						logger.String("grade", report.Profile.Grade))
				}
			}
		}()
	}

	for i := 0; i < config.Sessions; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, fmt.Errorf("context cancelled during load run: %w", ctx.Err())
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	stats.SessionsStarted = int(atomic.LoadInt64(&started))
	stats.SessionsCompleted = int(atomic.LoadInt64(&completed))
	stats.SessionsFailed = int(atomic.LoadInt64(&failed))
	stats.FramesAccepted = int(atomic.LoadInt64(&accepted))
	stats.FramesDropped = int(atomic.LoadInt64(&dropped))
	stats.ReportsRetrieved = len(reports)

	return reports, nil
}

// runSingleSession opens a session, streams synthetic frames, completes it
// and polls until the report is ready.
func runSingleSession(ctx context.Context, client *HTTPClient, config *Config) (*reportSummary, int, int, error) {
	resp, err := client.Post(ctx, config.BaseURL+"/v1/sessions", nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open session: %w", err)
	}
	var opened sessionResponse
	if err := decodeBody(resp, &opened); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode session response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated || opened.SessionID == "" {
		return nil, 0, 0, fmt.Errorf("%w: open returned status %d", ErrRunFailed, resp.StatusCode)
	}

	frames := generateSession(config.Frames, pickArchetype())
	base := config.BaseURL + "/v1/sessions/" + opened.SessionID

	var accepted, dropped int
	for start := 0; start < len(frames); start += config.BatchSize {
		end := start + config.BatchSize
		if end > len(frames) {
			end = len(frames)
		}

		resp, err := client.Post(ctx, base+"/frames", map[string]any{"frames": frames[start:end]})
		if err != nil {
			return nil, accepted, dropped, fmt.Errorf("failed to submit frames: %w", err)
		}
		var batch framesResponse
		if err := decodeBody(resp, &batch); err != nil {
			return nil, accepted, dropped, fmt.Errorf("failed to decode frames response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, accepted, dropped, fmt.Errorf("%w: frames returned status %d", ErrRunFailed, resp.StatusCode)
		}
		accepted += batch.Accepted
		dropped += batch.Dropped
	}

	// Completion can bounce off a full queue; retry with backoff.
	for {
		resp, err = client.Post(ctx, base+"/complete", nil)
		if err != nil {
			return nil, accepted, dropped, fmt.Errorf("failed to complete session: %w", err)
		}
		_ = decodeBody(resp, nil)
		if resp.StatusCode == http.StatusAccepted {
			break
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return nil, accepted, dropped, fmt.Errorf("%w: complete returned status %d", ErrRunFailed, resp.StatusCode)
		}
		select {
		case <-ctx.Done():
			return nil, accepted, dropped, ctx.Err()
		case <-time.After(reportPollInterval):
		}
	}

	report, err := pollReport(ctx, client, base+"/report")
	if err != nil {
		return nil, accepted, dropped, err
	}
	return report, accepted, dropped, nil
}

// pollReport fetches the report until analysis finishes or the deadline hits.
func pollReport(ctx context.Context, client *HTTPClient, url string) (*reportSummary, error) {
	deadline := time.Now().Add(reportPollTimeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch report: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var report reportSummary
			if err := decodeBody(resp, &report); err != nil {
				return nil, fmt.Errorf("failed to decode report: %w", err)
			}
			return &report, nil
		case http.StatusConflict:
			_ = decodeBody(resp, nil)
		default:
			_ = decodeBody(resp, nil)
			return nil, fmt.Errorf("%w: report returned status %d", ErrRunFailed, resp.StatusCode)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reportPollInterval):
		}
	}
	return nil, fmt.Errorf("%w: report not ready within %s", ErrRunFailed, reportPollTimeout)
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if err := decodeBody(resp, nil); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrRunFailed, resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveReportsToFile writes the collected report summaries as a JSON array.
func saveReportsToFile(ctx context.Context, config *Config, reports []reportSummary) error {
	if len(reports) == 0 {
		return fmt.Errorf("%w: no reports to save", ErrRunFailed)
	}

	dir := filepath.Dir(config.OutputFile)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(config.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}

	logger.Get().Info(ctx, "reports saved to file", logger.String("filename", config.OutputFile))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var sessionsPerMinute float64
	if stats.Duration > 0 {
		sessionsPerMinute = float64(stats.SessionsCompleted) / stats.Duration.Minutes()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("framesAccepted", stats.FramesAccepted),
		logger.Int("framesDropped", stats.FramesDropped),
		logger.Int("reportsRetrieved", stats.ReportsRetrieved),
		logger.Any("grades", stats.Grades),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("sessionsPerMinute", sessionsPerMinute))
}
