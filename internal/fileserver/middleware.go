package fileserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"runtime/debug"
	"time"
)

// Logger logs the start and end of every request.
func Logger(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := GetValues(ctx)

			log.Info("request started", "method", r.Method, "path", r.URL.Path, "range", r.Header.Get("Range"), "remoteaddr", r.RemoteAddr)

			err := handler(ctx, w, r)

			log.Info("request completed", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr, "statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}

		return h
	}

	return m
}

// Errors handles errors coming out of the call chain.
func Errors(log *slog.Logger) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			appErr, ok := errors.AsType[*Error](err)
			if !ok {
				appErr = NewInternal(err)
			}

			reqLog := log.With("trace_id", GetValues(ctx).TraceID)
			reqLog.Error(err.Error(), "source_err_file", path.Base(appErr.FileName), "source_err_func", path.Base(appErr.FuncName))

			if appErr.InnerErr {
				appErr.Message = http.StatusText(appErr.Code)
			}

			return respondJSON(w, appErr.Code, appErr)
		}

		return h
	}

	return m
}

// Panics recovers from panics if they occur.
func Panics() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// BasicAuth rejects requests without the given credentials with a 401
// challenge.
func BasicAuth(realm, username, password string) Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			u, p, ok := r.BasicAuth()
			if ok &&
				subtle.ConstantTimeCompare([]byte(u), []byte(username)) == 1 &&
				subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1 {
				return handler(ctx, w, r)
			}

			w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))

			return respondJSON(w, http.StatusUnauthorized, NewError(http.StatusUnauthorized, errors.New("authentication required")))
		}
		return h
	}
	return m
}

// NoRanges hides range support: Range and If-Range are dropped, so every
// request is answered with the full content.
func NoRanges() Middleware {
	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if r.Header.Get("Range") != "" {
				r = r.Clone(ctx)
				r.Header.Del("Range")
				r.Header.Del("If-Range")
			}

			return handler(ctx, &noRangesWriter{ResponseWriter: w}, r)
		}
		return h
	}
	return m
}

// noRangesWriter overrides the Accept-Ranges header just before the headers
// are sent, after any handler had a chance to set it.
type noRangesWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *noRangesWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.Header().Set("Accept-Ranges", "none")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *noRangesWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *noRangesWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
