package queue

// Option applies a configuration option to the Memory queue.
type Option func(*Memory)

// WithCapacity bounds the number of jobs waiting for a worker.
func WithCapacity(capacity int) Option {
	return func(q *Memory) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
