package worker

import (
	"time"

	"github.com/FAForever/faf-rating-service/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName renames the worker's logger for identification.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.logger = logger.Get().Named(name)
		}
	}
}

// WithRequestTimeout bounds the processing of one request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(w *Worker) {
		if timeout > 0 {
			w.requestTimeout = timeout
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}
