package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/crux/internal/adapters/mq/queue"
	"github.com/okian/crux/internal/domain/extract"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/scoring"
	"github.com/okian/crux/pkg/logger"
	"github.com/okian/crux/pkg/metrics"
)

// Analyze runs the full pipeline for one completed session: extract raw
// signals, score them, resolve the grade and render the SWOT narrative. It
// satisfies the worker pool's Analyzer contract.
func (s *Service) Analyze(ctx context.Context, job queue.Job) (*model.SessionReport, error) {
	technique := make(map[model.Category]model.MetricResult)
	var excluded []model.Category
	for _, ex := range extract.Technique() {
		raw, err := ex.Run(job.Buffer, s.extractParams)
		if err != nil {
			if !errors.Is(err, extract.ErrInsufficientData) {
				return nil, fmt.Errorf("extract %s: %w", ex.Category, err)
			}
			excluded = append(excluded, ex.Category)
			metrics.RecordInsufficientCategory()
			s.logger.Debug(ctx, "category excluded",
				logger.String("session", job.SessionID.String()),
				logger.String("category", string(ex.Category)),
				logger.Error(err))
			continue
		}
		technique[ex.Category] = s.aggregator.Score(raw)
	}

	// Auxiliary categories never appear in Excluded; absence just means the
	// narrative has less to say.
	aux := make(map[model.Category]model.MetricResult)
	for _, ex := range extract.Auxiliary() {
		raw, err := ex.Run(job.Buffer, s.extractParams)
		if err != nil {
			if !errors.Is(err, extract.ErrInsufficientData) {
				return nil, fmt.Errorf("extract %s: %w", ex.Category, err)
			}
			continue
		}
		aux[ex.Category] = s.aggregator.Score(raw)
	}

	stats := job.Buffer.Stats()
	cx := scoring.Complexity{
		DynamicMoves:  stats.DynamicCount,
		MaxReachRatio: stats.MaxReachRatio,
	}
	if secs := stats.Duration.Seconds(); secs > 0 {
		cx.MovesPerSecond = float64(stats.MoveCount) / secs
	}

	profile := s.aggregator.Aggregate(technique, excluded, cx)
	report := &model.SessionReport{
		SessionID:  job.SessionID,
		Profile:    profile,
		Auxiliary:  aux,
		Tension:    job.Tension,
		Swot:       *s.synth.Build(ctx, &profile, aux, job.Tension),
		Frames:     stats.Frames,
		Duration:   stats.Duration,
		AnalyzedAt: time.Now(),
	}
	return report, nil
}
