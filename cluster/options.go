package cluster

import (
	"io"
	"log/slog"

	"github.com/ar90n/kmeanstree/linalg"
	"github.com/ar90n/kmeanstree/metric"
)

const defaultMaxIterations = 1024

type options[T linalg.Number] struct {
	metric        metric.Metric[T]
	maxIterations uint
	maxGoroutines uint
	logger        *slog.Logger
}

func defaultOptions[T linalg.Number]() options[T] {
	return options[T]{
		metric:        metric.Default[T](),
		maxIterations: defaultMaxIterations,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

type Option[T linalg.Number] func(*options[T])

// WithMetric replaces the default Euclidean metric.
func WithMetric[T linalg.Number](m metric.Metric[T]) Option[T] {
	return func(o *options[T]) {
		if m != nil {
			o.metric = m
		}
	}
}

// WithMaxIterations bounds the refinement passes of a single Calculate.
// Zero removes the bound.
func WithMaxIterations[T linalg.Number](n uint) Option[T] {
	return func(o *options[T]) {
		o.maxIterations = n
	}
}

// WithMaxGoroutines limits the assignment workers. Zero means one per CPU.
func WithMaxGoroutines[T linalg.Number](n uint) Option[T] {
	return func(o *options[T]) {
		o.maxGoroutines = n
	}
}

func WithLogger[T linalg.Number](logger *slog.Logger) Option[T] {
	return func(o *options[T]) {
		if logger != nil {
			o.logger = logger
		}
	}
}
