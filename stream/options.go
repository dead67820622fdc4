package stream

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/httpseek/client"
	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	clientOpts []client.Option
	logger     *slog.Logger
	tracer     trace.Tracer
}

// WithClientOptions configures the HTTP client the engine builds on first
// use. They are applied after the connect timeout taken from the location,
// so they may override it.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the engine and its client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used for connect and reconnect spans. Default
// is the tracer of the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}
