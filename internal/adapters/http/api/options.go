package api

import "github.com/okian/crux/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}
