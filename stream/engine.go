package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/adamwoolhether/httpseek/client"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/location"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/adamwoolhether/httpseek/stream"

// maxDrainSize caps how much of a rejected body is read before closing it.
const maxDrainSize = 4 << 10 // 4KB

var _ handle.Source = (*Engine)(nil)

// Engine owns the HTTP client and the in-flight response for one resource.
type Engine struct {
	loc        location.Location
	creds      client.Credentials
	clientOpts []client.Option
	logger     *slog.Logger
	tracer     trace.Tracer

	// client is built on first use.
	client *client.Client

	// resp is the active response. Its body is the current stream.
	resp *http.Response

	// canResume starts optimistic and only goes false once a server
	// ignores a Range header.
	canResume bool

	// useAuth is set after the first 401 and never cleared.
	useAuth bool

	// length is fixed once known.
	length    int64
	hasLength bool

	closed bool
}

// New returns an Engine for loc. Nothing is sent until the first read,
// length or existence query.
func New(loc location.Location, optFns ...Option) (*Engine, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying stream option: %w", err)
		}
	}

	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.tracer == nil {
		opts.tracer = otel.Tracer(tracerName)
	}

	e := Engine{
		loc:        loc,
		creds:      client.Credentials{Username: loc.Username(), Password: loc.Password()},
		clientOpts: opts.clientOpts,
		logger:     opts.logger.With("url", loc.String()),
		tracer:     opts.tracer,
		canResume:  true,
	}

	return &e, nil
}

// Location returns the resource the engine reads.
func (e *Engine) Location() location.Location {
	return e.loc
}

// Connect returns the active response, issuing "Range: bytes=0-" if there
// is none. A status other than 200 or 206 yields a [ConnectionError] and
// nothing is kept, so the next call tries again.
func (e *Engine) Connect(ctx context.Context) (*http.Response, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.resp != nil {
		return e.resp, nil
	}

	ctx, span := e.tracer.Start(ctx, "stream.connect")
	defer span.End()

	resp, err := e.get(ctx, 0)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK:
		e.canResume = false
	case http.StatusPartialContent:
	default:
		e.discard(resp)
		err := newConnectionError(resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.resp = resp
	e.logger.Debug("connected", "status", resp.StatusCode, "resumable", e.canResume)

	return resp, nil
}

// Stream returns the body of the active response, connecting if needed.
func (e *Engine) Stream(ctx context.Context) (io.Reader, error) {
	resp, err := e.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Recreate reconnects with "Range: bytes=pos-". cursor is the position of
// the next unread byte of the current stream.
//
// On 206 the new response becomes the stream, starting at pos; a server
// already marked as unable to resume stays marked. On 200 the
// server is marked as unable to resume; if the current stream has not yet
// passed pos the new response is dropped and the old stream kept, otherwise
// the new response replaces it from position 0. Any other status leaves the
// engine untouched and returns a [ConnectionError].
func (e *Engine) Recreate(ctx context.Context, pos, cursor int64) (handle.Reopened, error) {
	if e.closed {
		return handle.Reopened{}, ErrClosed
	}
	if pos < 0 {
		return handle.Reopened{}, fmt.Errorf("negative position %d", pos)
	}

	ctx, span := e.tracer.Start(ctx, "stream.recreate", trace.WithAttributes(
		attribute.Int64("stream.position", pos),
		attribute.Int64("stream.cursor", cursor),
	))
	defer span.End()

	resp, err := e.get(ctx, pos)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return handle.Reopened{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch resp.StatusCode {
	case http.StatusOK:
		e.canResume = false

		if e.resp != nil && cursor < pos {
			e.logger.Debug("range ignored, skipping ahead in current stream", "position", pos, "cursor", cursor)
			e.discard(resp)
			return handle.Reopened{Offset: cursor}, nil
		}

		e.logger.Debug("range ignored, restarting stream", "position", pos)
		return handle.Reopened{Offset: 0, Replaced: true}, e.replace(resp)

	case http.StatusPartialContent:
		if cr, err := parseContentRange(resp.Header.Get("Content-Range")); err == nil && cr.start != pos {
			e.discard(resp)
			err := fmt.Errorf("%w: asked for %d, got %d", ErrContentRange, pos, cr.start)
			span.SetStatus(codes.Error, err.Error())
			return handle.Reopened{}, err
		}

		e.logger.Debug("reconnected", "position", pos)
		return handle.Reopened{Offset: pos, Replaced: true}, e.replace(resp)

	default:
		e.discard(resp)
		err := newConnectionError(resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return handle.Reopened{}, err
	}
}

// Reset restarts the stream at position 0.
func (e *Engine) Reset(ctx context.Context) error {
	_, err := e.Recreate(ctx, 0, 0)
	return err
}

// CanRecreate reports whether the server is still believed to honor ranges.
func (e *Engine) CanRecreate() bool {
	return e.canResume
}

// AuthRequired reports whether the server has asked for credentials.
func (e *Engine) AuthRequired() bool {
	return e.useAuth
}

// Length returns the size of the resource. It is taken from the total of
// Content-Range on a 206 response and from Content-Length on a 200, and is
// never recomputed afterwards.
func (e *Engine) Length(ctx context.Context) (int64, error) {
	if e.hasLength {
		return e.length, nil
	}

	resp, err := e.Connect(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	switch resp.StatusCode {
	case http.StatusPartialContent:
		cr, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return 0, err
		}
		if cr.total < 0 {
			return 0, fmt.Errorf("content range total: %w", ErrUnknownLength)
		}
		n = cr.total
	default:
		if resp.ContentLength < 0 {
			return 0, fmt.Errorf("content length: %w", ErrUnknownLength)
		}
		n = resp.ContentLength
	}

	e.length = n
	e.hasLength = true

	return n, nil
}

// Exists reports whether the resource answers with a 2xx status right now.
// An error is returned only when no response could be obtained at all.
func (e *Engine) Exists(ctx context.Context) (bool, error) {
	resp, err := e.Connect(ctx)
	if err != nil {
		if _, ok := errors.AsType[*ConnectionError](err); ok {
			return false, nil
		}
		return false, err
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// LastModified returns the Last-Modified time of the active response, or
// the zero time if the server sent none.
func (e *Engine) LastModified(ctx context.Context) (time.Time, error) {
	resp, err := e.Connect(ctx)
	if err != nil {
		return time.Time{}, err
	}

	v := resp.Header.Get("Last-Modified")
	if v == "" {
		return time.Time{}, nil
	}

	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last modified: %w", err)
	}

	return t, nil
}

func (e *Engine) IsReadable() bool { return true }

func (e *Engine) IsWritable() bool { return false }

// SetLength always fails; HTTP resources are read-only.
func (e *Engine) SetLength(int64) error {
	return fmt.Errorf("can not set length on http streams: %w", errors.ErrUnsupported)
}

// Close releases the active response. Calling Close more than once is a
// no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if e.resp == nil {
		return nil
	}

	body := e.resp.Body
	e.resp = nil
	if err := body.Close(); err != nil {
		return fmt.Errorf("closing response body: %w", err)
	}

	return nil
}

// get sends a ranged GET starting at pos and folds the authentication
// outcome into the engine.
func (e *Engine) get(ctx context.Context, pos int64) (*http.Response, error) {
	c, err := e.httpClient()
	if err != nil {
		return nil, err
	}

	header := http.Header{"Range": {"bytes=" + strconv.FormatInt(pos, 10) + "-"}}
	if e.useAuth {
		header = client.Header(header, e.creds)
	}

	resp, challenge, err := c.Get(ctx, e.loc.URL(), header, e.creds)
	if challenge.Required && !e.useAuth {
		e.logger.Debug("server requires authentication", "attempts", challenge.Attempts)
		e.useAuth = true
	}
	if err != nil {
		return nil, fmt.Errorf("get at %d: %w", pos, err)
	}

	return resp, nil
}

func (e *Engine) httpClient() (*client.Client, error) {
	if e.client != nil {
		return e.client, nil
	}

	opts := []client.Option{client.WithLogger(e.logger)}
	if t := e.loc.Timeout(); t > 0 {
		opts = append(opts, client.WithConnectTimeout(t))
	}
	opts = append(opts, e.clientOpts...)

	c, err := client.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}
	e.client = c

	return c, nil
}

// replace makes resp the active response, closing the previous body.
func (e *Engine) replace(resp *http.Response) error {
	old := e.resp
	e.resp = resp

	if old == nil {
		return nil
	}
	if err := old.Body.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamClose, err)
	}

	return nil
}

// discard drains a little of a body that will not be used and closes it.
func (e *Engine) discard(resp *http.Response) {
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)); err != nil {
		e.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		e.logger.Error("failed to close response body", "error", err)
	}
}
