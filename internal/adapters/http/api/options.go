package api

import "github.com/okian/kpiboard/pkg/logger"

// Option configures a Server.
type Option func(*Server)

// WithLogger logs server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}
