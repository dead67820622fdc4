package fileserver

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	mw     []Middleware
	tracer trace.Tracer
	logger *slog.Logger
}

// WithMiddleware appends middleware, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(opts *appOptions) {
		opts.mw = append(opts.mw, mw...)
	}
}

// WithTracer injects the given tracer into the App.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *appOptions) {
		opts.tracer = tracer
	}
}

// WithLogger sets the logger used by the App for internal errors.
func WithLogger(log *slog.Logger) Option {
	return func(opts *appOptions) {
		opts.logger = log
	}
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	host            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// WithHost sets the host address the server listens on. Default is ":8080".
func WithHost(host string) ServerOption {
	return func(opts *serverOptions) {
		opts.host = host
	}
}

// WithReadTimeout sets the maximum duration for reading the entire
// request. Default is 5s.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(opts *serverOptions) {
		opts.readTimeout = d
	}
}

// WithWriteTimeout sets the maximum duration before timing out writes of
// the response. Zero, the default, lets large files stream for as long as
// the client reads.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(opts *serverOptions) {
		opts.writeTimeout = d
	}
}

// WithIdleTimeout sets the keep-alive idle timeout. Default is 120s.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(opts *serverOptions) {
		opts.idleTimeout = d
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests
// after its context ends. Default is 20s.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(opts *serverOptions) {
		opts.shutdownTimeout = d
	}
}

// WithServerLogger sets the logger used for server lifecycle events.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(opts *serverOptions) {
		opts.logger = log
	}
}
