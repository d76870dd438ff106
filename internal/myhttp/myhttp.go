package myhttp

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

type Option func(*myRouter)

// WithMaxRequestBytes caps the request body read by middleware-wrapped
// handlers. Zero means unlimited.
func WithMaxRequestBytes(n int64) Option {
	return func(m *myRouter) {
		m.maxRequestBytes = n
	}
}

func newServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram, opts ...Option) *myRouter {
	m := &myRouter{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var NewServerMux = newServerMux
