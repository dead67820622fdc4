// Package registry maps URL schemes to the constructors that open a
// seekable handle for them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/adamwoolhether/httpseek/handle"
)

var (
	ErrNoFactory       = errors.New("no factory registered for scheme")
	ErrDuplicateScheme = errors.New("scheme already registered")
)

// Factory opens a handle for u.
type Factory func(ctx context.Context, u *url.URL) (*handle.Handle, error)

// Registry is safe for concurrent use. The zero value is empty and ready.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds factory to each of the schemes. Schemes are matched
// case-insensitively. Nothing is registered if any scheme is taken.
func (r *Registry) Register(factory Factory, schemes ...string) error {
	if factory == nil {
		return errors.New("nil factory")
	}
	if len(schemes) == 0 {
		return errors.New("no schemes given")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}

	keys := make([]string, 0, len(schemes))
	for _, s := range schemes {
		key := strings.ToLower(s)
		if key == "" {
			return errors.New("empty scheme")
		}
		if _, ok := r.factories[key]; ok || slices.Contains(keys, key) {
			return fmt.Errorf("%w: %s", ErrDuplicateScheme, key)
		}
		keys = append(keys, key)
	}

	for _, key := range keys {
		r.factories[key] = factory
	}

	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// package initialization.
func (r *Registry) MustRegister(factory Factory, schemes ...string) {
	if err := r.Register(factory, schemes...); err != nil {
		panic(err)
	}
}

// Lookup returns the factory bound to scheme.
func (r *Registry) Lookup(scheme string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(scheme)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoFactory, scheme)
	}

	return f, nil
}

// Open parses rawURL and hands it to the factory registered for its scheme.
func (r *Registry) Open(ctx context.Context, rawURL string) (*handle.Handle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	return r.OpenURL(ctx, u)
}

// OpenURL is like Open for an already parsed URL.
func (r *Registry) OpenURL(ctx context.Context, u *url.URL) (*handle.Handle, error) {
	f, err := r.Lookup(u.Scheme)
	if err != nil {
		return nil, err
	}

	h, err := f(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", u.Redacted(), err)
	}

	return h, nil
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.factories))
	for s := range r.factories {
		schemes = append(schemes, s)
	}
	slices.Sort(schemes)

	return schemes
}
