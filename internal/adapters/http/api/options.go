package api

import "github.com/okian/geocluster/pkg/logger"

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 32 << 20

type settings struct {
	maxBodyBytes int64
	log          logger.Logger
}

// Option configures the API handlers.
type Option func(*settings)

// WithMaxBodyBytes limits the size of request bodies. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{maxBodyBytes: DefaultMaxBodyBytes, log: logger.Nop()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
