package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxReports bounds how many reports are retained before the oldest is
// evicted.
func WithMaxReports(max int) Option {
	return func(s *MemoryStore) {
		if max > 0 {
			s.max = max
		}
	}
}
