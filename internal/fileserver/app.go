package fileserver

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// RequestIDHeader carries the trace ID of every response.
const RequestIDHeader = "X-Request-Id"

// Handler is a http.Handler that returns an error.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware defines a signature to chain Handler together.
type Middleware func(handler Handler) Handler

// App serves the files of an fs.FS under GET and HEAD.
type App struct {
	mux    *http.ServeMux
	fsys   fs.FS
	mw     []Middleware
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates an App serving fsys. A no-op tracer and the default slog
// logger are used unless overridden via options.
func New(fsys fs.FS, optFns ...Option) *App {
	var opts appOptions
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	a := &App{
		mux:    http.NewServeMux(),
		fsys:   fsys,
		mw:     opts.mw,
		logger: opts.logger,
		tracer: opts.tracer,
	}

	a.handle(http.MethodGet, "/", a.serveFile)

	return a
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// handle registers handler for method on path. GET also matches HEAD.
func (a *App) handle(method, path string, handler Handler) {
	handler = wrap(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx, span := a.startSpan(w, r)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, traceID)

		v := Values{
			TraceID: traceID,
			Now:     time.Now().UTC(),
			Tracer:  a.tracer,
		}

		r = r.WithContext(setValues(ctx, &v))
		sw := &statusWriter{ResponseWriter: w, ctx: r.Context()}

		if err := handler(r.Context(), sw, r); err != nil {
			a.logger.Error("fileserver", "handle", err)
		}
	}

	a.mux.HandleFunc(method+" "+path, h)
}

// startSpan adds a span for the request and writes the propagation headers
// into the response.
func (a *App) startSpan(w http.ResponseWriter, r *http.Request) (context.Context, trace.Span) {
	ctx, span := a.tracer.Start(r.Context(), "fileserver.handler")
	span.SetAttributes(
		attribute.String("path", r.URL.Path),
		attribute.String("http.range", r.Header.Get("Range")),
	)

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))

	return ctx, span
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}

// statusWriter records the status code in the request Values.
type statusWriter struct {
	http.ResponseWriter
	ctx         context.Context
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		SetStatusCode(w.ctx, code)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
