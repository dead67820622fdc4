// Package httpseek opens seekable, read-only handles over HTTP(S) resources
// and local files.
//
// Remote handles are backed by a [stream.Engine], which issues ranged GET
// requests and reconnects at the requested offset when the server supports
// it. Servers that ignore ranges are read sequentially, skipping forward
// and restarting from the beginning on backward seeks.
package httpseek

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/location"
	"github.com/adamwoolhether/httpseek/registry"
	"github.com/adamwoolhether/httpseek/stream"
)

// DefaultRegistry serves the http, https and file schemes with default
// settings.
var DefaultRegistry = NewRegistry()

// NewRegistry returns a registry for the http, https and file schemes whose
// factories apply opts. It panics if an option is invalid.
func NewRegistry(opts ...Option) *registry.Registry {
	o, err := newOptions(opts)
	if err != nil {
		panic(fmt.Sprintf("httpseek: %v", err))
	}

	return o.registry()
}

// Open returns a handle for rawURL.
func Open(ctx context.Context, rawURL string, opts ...Option) (*handle.Handle, error) {
	if len(opts) == 0 {
		return DefaultRegistry.Open(ctx, rawURL)
	}

	o, err := newOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("applying option: %w", err)
	}

	return o.registry().Open(ctx, rawURL)
}

// OpenLocation returns a handle for an http(s) location.
func OpenLocation(ctx context.Context, loc location.Location, opts ...Option) (*handle.Handle, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("applying option: %w", err)
	}

	return o.open(ctx, loc)
}

func (o *options) registry() *registry.Registry {
	r := registry.New()
	r.MustRegister(o.openHTTP, "http", "https")
	r.MustRegister(o.openFile, "file")

	return r
}

func (o *options) openHTTP(ctx context.Context, u *url.URL) (*handle.Handle, error) {
	var locOpts []location.Option
	if o.hasCreds {
		locOpts = append(locOpts, location.WithCredentials(o.username, o.password))
	}
	if o.timeout != nil {
		locOpts = append(locOpts, location.WithTimeout(*o.timeout))
	}

	loc, err := location.FromURL(u, locOpts...)
	if err != nil {
		return nil, err
	}

	return o.open(ctx, loc)
}

func (o *options) open(ctx context.Context, loc location.Location) (*handle.Handle, error) {
	e, err := stream.New(loc, o.engineOpts()...)
	if err != nil {
		return nil, err
	}

	return o.newHandle(ctx, e)
}

func (o *options) openFile(ctx context.Context, u *url.URL) (*handle.Handle, error) {
	src, err := handle.OpenFile(u.Path)
	if err != nil {
		return nil, err
	}

	return o.newHandle(ctx, src)
}

// newHandle wraps src in a handle. src is closed if the handle can not be
// built.
func (o *options) newHandle(ctx context.Context, src handle.Source) (*handle.Handle, error) {
	h, err := handle.New(ctx, src, o.handleOptions()...)
	if err != nil {
		if cerr := src.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing source: %w", cerr))
		}
		return nil, err
	}

	return h, nil
}
