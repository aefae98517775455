package swot

import "github.com/okian/crux/pkg/logger"

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger used for render warnings.
func WithLogger(log logger.Logger) Option {
	return func(s *Synthesizer) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWeaknessCutoff sets the score below which a metric becomes a weakness.
func WithWeaknessCutoff(cutoff float64) Option {
	return func(s *Synthesizer) {
		if cutoff > 0 {
			s.weaknessMax = cutoff
		}
	}
}
