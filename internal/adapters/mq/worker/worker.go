// Package worker runs the analysis pipeline off the session completion path.
// A pool of workers drains the job queue, turns each completed session into a
// report and hands it to the store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/crux/internal/adapters/mq/queue"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/logger"
	"github.com/okian/crux/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Analyzer turns one completed session into a report.
type Analyzer interface {
	Analyze(ctx context.Context, job queue.Job) (*model.SessionReport, error)
}

// Sink receives finished reports.
type Sink interface {
	Put(ctx context.Context, report *model.SessionReport) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drains jobs until its context or the queue ends.
type Worker struct {
	queue    Queue
	analyzer Analyzer
	sink     Sink
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(q Queue, analyzer Analyzer, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		analyzer: analyzer,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "analysis job failed",
					logger.String("session", job.SessionID.String()),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight job.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	report, err := w.analyzer.Analyze(ctx, job)
	metrics.RecordAnalysisDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordAnalysisError()
		return fmt.Errorf("analyze session %s: %w", job.SessionID, err)
	}
	if err := w.sink.Put(ctx, report); err != nil {
		return fmt.Errorf("store report %s: %w", job.SessionID, err)
	}
	w.logger.Debug(ctx, "session analyzed",
		logger.String("session", job.SessionID.String()),
		logger.Float64("overall", report.Profile.OverallScore),
		logger.String("grade", report.Profile.Grade))
	return nil
}

// Pool manages a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates count workers. A non-positive count defaults to the number
// of CPUs.
func NewPool(count int, q Queue, analyzer Analyzer, sink Sink, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*Worker, count),
		logger:  logger.Nop(),
	}
	for i := range p.workers {
		p.workers[i] = New(q, analyzer, sink,
			append(opts, WithName("worker-"+strconv.Itoa(i)))...)
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown stops all workers, waiting up to the pool timeout for in-flight
// jobs to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out",
				logger.String("worker", w.name), logger.Error(err))
		}
	}
	return nil
}
