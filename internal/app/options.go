package app

import (
	"time"

	"github.com/okian/crux/internal/adapters/repository"
	"github.com/okian/crux/internal/config"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/scoring"
	"github.com/okian/crux/internal/templates"
	"github.com/okian/crux/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithTemplates sets the shared template set.
func WithTemplates(set *templates.Set) Option {
	return func(s *Service) {
		if set != nil {
			s.set = set
		}
	}
}

// WithQueueSize bounds the analysis job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithStore sets the report store. Intended for tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// FromConfig derives detection, extraction and scoring parameters from the
// loaded configuration.
func FromConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		s.bufferParams.Capacity = cfg.BufferCapacity
		s.bufferParams.MinConfidence = cfg.MinConfidence
		s.bufferParams.MaxHold = time.Duration(cfg.MaxHoldMS) * time.Millisecond
		s.bufferParams.MoveThreshold = cfg.MoveThreshold
		s.bufferParams.SettleVelocity = cfg.SettleVelocity
		s.bufferParams.SettleDwell = time.Duration(cfg.SettleDwellMS) * time.Millisecond
		s.bufferParams.HoldRadius = cfg.HoldRadius
		s.bufferParams.PivotAngleDeg = cfg.PivotAngleDeg
		s.bufferParams.PauseMin = time.Duration(cfg.PauseMinMS) * time.Millisecond
		s.bufferParams.PauseMax = time.Duration(cfg.PauseMaxMS) * time.Millisecond
		s.bufferParams.DynamicVelocity = cfg.DynamicVelocity

		s.extractParams.GradeBracket = cfg.GradeBracket
		s.tensionParams.MinConfidence = cfg.MinConfidence

		weights := make(map[model.Category]float64, len(cfg.Weights))
		for cat, w := range cfg.Weights {
			weights[model.Category(cat)] = w
		}
		s.aggregator = scoring.New(
			scoring.WithWeights(weights),
			scoring.WithCalibration(cfg.GradeCalibration),
		)

		s.queueSize = cfg.QueueSize
		s.workerCount = cfg.WorkerCount
		if cfg.WeaknessCutoff > 0 {
			s.weaknessCutoff = cfg.WeaknessCutoff
		}
	}
}
