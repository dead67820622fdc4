package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/adamwoolhether/httpseek/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

type options struct {
	client            *http.Client
	base              http.RoundTripper
	timeout           *time.Duration
	connectTimeout    *time.Duration
	userAgent         string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
}

// WithClient starts from hc instead of a fresh [http.Client]. Its transport
// becomes the base transport unless [WithTransport] is also given.
func WithClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets the base transport every range request goes through.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.base = rt
		return nil
	}
}

// WithTimeout bounds each whole exchange, body included. A stream that is
// read slowly will be cut off by it; [WithConnectTimeout] is usually the
// one wanted.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithConnectTimeout bounds dialing and the TLS handshake. Reading the
// response body is not affected.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("connect timeout must not be negative")
		}
		o.connectTimeout = &d
		return nil
	}
}

func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.userAgent = ua
		return nil
	}
}

// WithThrottle holds requests back to the budget in cfg. With
// [throttle.Reconnects] only requests resuming past byte 0 are counted.
func WithThrottle(cfg throttle.Config) Option {
	return func(o *options) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects returns 3xx responses to the caller as they are.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// transport stacks the configured layers over the base transport. From the
// outside in: throttle, user agent, connect timeout.
func (o *options) transport(logger *slog.Logger) (http.RoundTripper, error) {
	var rt http.RoundTripper
	switch {
	case o.base != nil:
		rt = o.base
	case o.client != nil && o.client.Transport != nil:
		rt = o.client.Transport
	default:
		rt = http.DefaultTransport
	}

	if o.connectTimeout != nil {
		rt = withConnectTimeout(rt, *o.connectTimeout)
	}
	if o.userAgent != "" {
		rt = userAgent{value: o.userAgent, base: rt}
	}
	if o.throttle != nil {
		limited, err := throttle.New(*o.throttle, logger, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = limited
	}

	return rt, nil
}

// withConnectTimeout bounds dialing and the TLS handshake of rt. Only
// *http.Transport can be tuned this way; any other RoundTripper is returned
// as is.
func withConnectTimeout(rt http.RoundTripper, d time.Duration) http.RoundTripper {
	base, ok := rt.(*http.Transport)
	if !ok {
		return rt
	}

	t := base.Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   d,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = d

	return t
}

// userAgent sets the User-Agent of every request on a copy of it.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
