package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Scope selects which requests wait for a token.
type Scope int

const (
	// All throttles every request.
	All Scope = iota
	// Reconnects throttles only requests that resume past the first byte,
	// which is where a seeking reader multiplies its request count. The
	// opening "bytes=0-" request of a stream goes straight through.
	Reconnects
)

func (s Scope) String() string {
	switch s {
	case All:
		return "all"
	case Reconnects:
		return "reconnects"
	default:
		return "scope(" + strconv.Itoa(int(s)) + ")"
	}
}

// Config is the request budget: RPS tokens are added per second, up to
// Burst stored tokens.
type Config struct {
	RPS   int
	Burst int
	Scope Scope
}

// Validate reports whether the budget can ever admit a request.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}
	if c.Scope != All && c.Scope != Reconnects {
		return fmt.Errorf("unknown throttle %v", c.Scope)
	}
	return nil
}

// limiter is an http.RoundTripper holding requests back until the token
// bucket admits them.
type limiter struct {
	bucket *rate.Limiter
	cfg    Config
	next   http.RoundTripper
	logger *slog.Logger
}

// New returns an http.RoundTripper that spends one token of cfg's budget on
// every request in cfg.Scope before passing it to next. A nil next means
// [http.DefaultTransport]; a nil logger disables logging.
func New(cfg Config, logger *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}

	l := limiter{
		bucket: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:    cfg,
		next:   next,
		logger: logger,
	}

	return &l, nil
}

func (l *limiter) RoundTrip(r *http.Request) (*http.Response, error) {
	offset, ranged := RangeStart(r.Header.Get("Range"))
	if l.cfg.Scope == Reconnects && (!ranged || offset == 0) {
		return l.next.RoundTrip(r)
	}

	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	start := time.Now()
	exhausted := l.bucket.TokensAt(start) < 1

	if err := l.bucket.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w at offset %d: %w", ErrWaitingFailed, offset, err)
	}

	if exhausted && l.logger != nil {
		l.logger.Debug("request throttled", "host", r.URL.Host, "offset", offset, "scope", l.cfg.Scope, "waited", time.Since(start).String())
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return l.next.RoundTrip(r)
}

// RangeStart returns the first byte requested by a "bytes=N-" or
// "bytes=N-M" Range header. ok is false for any other value.
func RangeStart(header string) (offset int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, false
	}

	first, _, found := strings.Cut(spec, "-")
	if !found || strings.Contains(spec, ",") {
		return 0, false
	}

	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}
