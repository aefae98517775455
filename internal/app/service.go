// Package app wires the session lifecycle: frames stream into an isolated
// per-session buffer and tension analyzer, completion hands the session to
// the worker pool, and finished reports land in the store.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/crux/internal/adapters/mq/queue"
	"github.com/okian/crux/internal/adapters/mq/worker"
	"github.com/okian/crux/internal/adapters/repository"
	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/extract"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/scoring"
	"github.com/okian/crux/internal/domain/swot"
	"github.com/okian/crux/internal/domain/tension"
	"github.com/okian/crux/internal/templates"
	"github.com/okian/crux/pkg/logger"
	"github.com/okian/crux/pkg/metrics"
)

// session is the state of one climbing attempt. It is owned by the service
// map while active and by exactly one worker after completion.
type session struct {
	buf       *buffer.Buffer
	tens      *tension.Analyzer
	createdAt time.Time
}

// Service implements the API dependencies for the assessment engine. The
// template set is the only state shared between sessions.
type Service struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
	pending  map[uuid.UUID]time.Time

	bufferParams  buffer.Params
	extractParams extract.Params
	tensionParams tension.Params

	set        *templates.Set
	aggregator *scoring.Aggregator
	synth      *swot.Synthesizer

	queue *queue.Memory
	pool  *worker.Pool
	store repository.Store

	queueSize      int
	workerCount    int
	weaknessCutoff float64
	started        bool

	logger logger.Logger
}

// New constructs a Service with default parameters.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:      make(map[uuid.UUID]*session),
		pending:       make(map[uuid.UUID]time.Time),
		bufferParams:  buffer.DefaultParams(),
		extractParams: extract.DefaultParams(),
		tensionParams: tension.DefaultParams(),
		set:            templates.Builtin(),
		queueSize:      1024,
		workerCount:    0, // pool defaults to NumCPU
		weaknessCutoff: 55,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the queue, store and worker pool and begins draining jobs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.aggregator == nil {
		s.aggregator = scoring.New()
	}
	s.synth = swot.New(s.set, swot.WithLogger(s.logger),
		swot.WithWeaknessCutoff(s.weaknessCutoff))
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.queue = queue.NewMemory(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s, &reportSink{svc: s},
		worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "assessment service started",
		logger.Int("queue_size", s.queueSize),
		logger.Int("workers", s.workerCount))
	return nil
}

// Stop closes the queue and waits for in-flight analyses.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	q, pool := s.queue, s.pool
	s.mu.Unlock()

	_ = q.Close()
	_ = pool.Shutdown(ctx)
	s.logger.Info(ctx, "assessment service stopped")
}

// StartSession opens a new session and returns its id.
func (s *Service) StartSession(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return uuid.Nil, ErrNotStarted
	}
	id := uuid.New()
	s.sessions[id] = &session{
		buf:       buffer.New(s.bufferParams, buffer.WithLogger(s.logger)),
		tens:      tension.New(s.tensionParams),
		createdAt: time.Now(),
	}
	metrics.RecordSessionStarted()
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session started", logger.String("session", id.String()))
	return id, nil
}

// AppendFrame feeds one pose frame into a session. A malformed frame is
// dropped and reported; it never ends the session.
func (s *Service) AppendFrame(ctx context.Context, id uuid.UUID, frame model.PoseFrame) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("append frame: %w", ErrSessionNotFound)
	}

	if err := sess.buf.Append(ctx, frame); err != nil {
		reason := "malformed"
		if errors.Is(err, buffer.ErrOutOfOrder) {
			reason = "out_of_order"
		}
		metrics.RecordFrameDropped(reason)
		metrics.RecordMalformedFrame()
		return fmt.Errorf("append frame: %w", err)
	}
	sess.tens.Observe(frame)
	metrics.RecordFrameIngested()
	return nil
}

// CompleteSession closes a session and enqueues its analysis. On a full
// queue the session is kept so completion can be retried.
func (s *Service) CompleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("complete session: %w", ErrSessionNotFound)
	}
	if sess.buf.FrameCount() == 0 {
		delete(s.sessions, id)
		metrics.UpdateActiveSessions(len(s.sessions))
		s.mu.Unlock()
		return fmt.Errorf("complete session %s: %w", id, ErrEmptySession)
	}
	delete(s.sessions, id)
	s.pending[id] = time.Now()
	metrics.UpdateActiveSessions(len(s.sessions))
	s.mu.Unlock()

	job := queue.Job{SessionID: id, Buffer: sess.buf, Tension: sess.tens.Events()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.mu.Lock()
		s.sessions[id] = sess
		delete(s.pending, id)
		metrics.UpdateActiveSessions(len(s.sessions))
		s.mu.Unlock()
		return fmt.Errorf("complete session %s: %w", id, ErrBusy)
	}
	metrics.RecordSessionCompleted()
	s.logger.Debug(ctx, "session enqueued for analysis",
		logger.String("session", id.String()),
		logger.Int("frames", sess.buf.FrameCount()))
	return nil
}

// AbandonSession discards a session and any stored report.
func (s *Service) AbandonSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	_, active := s.sessions[id]
	if active {
		delete(s.sessions, id)
		metrics.RecordSessionAbandoned()
		metrics.UpdateActiveSessions(len(s.sessions))
	}
	s.mu.Unlock()

	_, getErr := s.store.Get(ctx, id)
	hadReport := getErr == nil
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("abandon session %s: %w", id, err)
	}
	if !active && !hadReport {
		return fmt.Errorf("abandon session: %w", ErrSessionNotFound)
	}
	s.logger.Debug(ctx, "session abandoned", logger.String("session", id.String()))
	return nil
}

// Report returns the finished report for a session. A session that is still
// streaming or still in the analysis queue reports ErrReportNotReady.
func (s *Service) Report(ctx context.Context, id uuid.UUID) (*model.SessionReport, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	report, err := s.store.Get(ctx, id)
	if err == nil {
		return report, nil
	}

	s.mu.RLock()
	_, active := s.sessions[id]
	_, queued := s.pending[id]
	s.mu.RUnlock()
	if active || queued {
		return nil, fmt.Errorf("report %s: %w", id, ErrReportNotReady)
	}
	return nil, fmt.Errorf("report %s: %w", id, ErrSessionNotFound)
}

// ActiveSessions returns the number of sessions currently streaming.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// reportSink stores finished reports and clears the pending mark, so Report
// can tell "still analyzing" from "never existed". The mark is cleared even
// when the store rejects the report; the session is lost either way and must
// not answer "not ready" forever.
type reportSink struct {
	svc *Service
}

func (r *reportSink) Put(ctx context.Context, report *model.SessionReport) error {
	err := r.svc.store.Put(ctx, report)
	r.svc.mu.Lock()
	delete(r.svc.pending, report.SessionID)
	r.svc.mu.Unlock()
	return err
}
