package server

import "github.com/prometheus/client_golang/prometheus"

type ServerFuncOpt func(*Server)

func WithTokenService(tokens TokenService) ServerFuncOpt {
	return func(s *Server) {
		if tokens != nil {
			s.tokens = tokens
		}
	}
}

// WithRegistry sets the registry the gateway registers its collectors in and
// serves on /metrics.
func WithRegistry(registry *prometheus.Registry) ServerFuncOpt {
	return func(s *Server) {
		if registry != nil {
			s.registry = registry
		}
	}
}
