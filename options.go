package httpseek

import (
	"errors"
	"log/slog"
	"time"

	"github.com/adamwoolhether/httpseek/client"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/stream"
)

// Option defines optional settings for opening a handle.
//
// WithCredentials and WithTimeout shape the location of http(s) resources.
// WithClientOptions and WithStreamOptions reach the engine, WithHandleOptions
// the returned handle. WithLogger is passed to all of them.
type Option func(*options) error
type options struct {
	username, password string
	hasCreds           bool
	timeout            *time.Duration
	clientOpts         []client.Option
	streamOpts         []stream.Option
	handleOpts         []handle.Option
	logger             *slog.Logger
}

// WithCredentials sets the Basic-auth credentials used when the server asks
// for them. They take precedence over credentials in the URL.
func WithCredentials(username, password string) Option {
	return func(o *options) error {
		o.username, o.password = username, password
		o.hasCreds = true
		return nil
	}
}

// WithTimeout sets the connection timeout of http(s) resources.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) error {
		o.clientOpts = append(o.clientOpts, opts...)
		return nil
	}
}

func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) error {
		o.streamOpts = append(o.streamOpts, opts...)
		return nil
	}
}

func WithHandleOptions(opts ...handle.Option) Option {
	return func(o *options) error {
		o.handleOpts = append(o.handleOpts, opts...)
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

func (o *options) engineOpts() []stream.Option {
	var opts []stream.Option
	if o.logger != nil {
		opts = append(opts, stream.WithLogger(o.logger))
	}
	if len(o.clientOpts) > 0 {
		opts = append(opts, stream.WithClientOptions(o.clientOpts...))
	}
	return append(opts, o.streamOpts...)
}

func (o *options) handleOptions() []handle.Option {
	var opts []handle.Option
	if o.logger != nil {
		opts = append(opts, handle.WithLogger(o.logger))
	}
	return append(opts, o.handleOpts...)
}

func newOptions(optFns []Option) (*options, error) {
	var o options
	for _, opt := range optFns {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
