package fileserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type ctxKey int

const base ctxKey = iota + 1

// Values are shared by the middleware of a single request.
type Values struct {
	TraceID    string
	Now        time.Time
	Tracer     trace.Tracer
	StatusCode int
}

// SetStatusCode records the response status for logging.
func SetStatusCode(ctx context.Context, statusCode int) {
	v, ok := ctx.Value(base).(*Values)
	if !ok {
		return
	}

	v.StatusCode = statusCode
}

// GetValues retrieves the Values from the given context.
func GetValues(ctx context.Context) *Values {
	v, ok := ctx.Value(base).(*Values)
	if !ok {
		return &Values{
			TraceID: uuid.Nil.String(),
			Tracer:  noop.NewTracerProvider().Tracer(""),
			Now:     time.Now(),
		}
	}

	return v
}

func setValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, base, v)
}
