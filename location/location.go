// Package location identifies an HTTP(S) resource that can be opened as a
// seekable stream.
package location

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DefaultTimeout bounds connection establishment when no timeout is given.
const DefaultTimeout = 10 * time.Second

// ErrInvalidLocation is returned when a URL or its options fail validation.
var ErrInvalidLocation = errors.New("invalid location")

// Location is an immutable reference to a remote resource. The zero value is
// not usable; construct one with [New] or [FromURL].
type Location struct {
	url      url.URL
	username string
	password string
	timeout  time.Duration
}

// New parses rawURL and builds a Location from it. Credentials embedded as
// userinfo are picked up unless overridden with [WithCredentials].
func New(rawURL string, optFns ...Option) (Location, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Location{}, fmt.Errorf("%w: parsing url: %w", ErrInvalidLocation, err)
	}

	return FromURL(u, optFns...)
}

// FromURL builds a Location from an already parsed URL. u is copied.
func FromURL(u *url.URL, optFns ...Option) (Location, error) {
	if u == nil {
		return Location{}, fmt.Errorf("%w: url must not be nil", ErrInvalidLocation)
	}

	opts := options{timeout: DefaultTimeout}
	if u.User != nil {
		opts.username = u.User.Username()
		opts.password, _ = u.User.Password()
	}

	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return Location{}, fmt.Errorf("applying location option: %w", err)
		}
	}

	in := input{
		URL:     u.String(),
		Scheme:  u.Scheme,
		Host:    u.Host,
		Timeout: opts.timeout,
	}
	if err := validateInput(in); err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	loc := Location{
		url:      *u,
		username: opts.username,
		password: opts.password,
		timeout:  opts.timeout,
	}
	loc.url.User = nil

	return loc, nil
}

// Resolve turns an http or https URL into a Location, keeping any userinfo
// credentials.
func Resolve(u *url.URL) (Location, error) {
	return FromURL(u)
}

// URL returns a copy of the resource URL without credentials.
func (l Location) URL() *url.URL {
	u := l.url
	return &u
}

// String returns the URL without credentials.
func (l Location) String() string {
	return l.url.String()
}

// Scheme is either "http" or "https".
func (l Location) Scheme() string {
	return l.url.Scheme
}

func (l Location) Username() string { return l.username }

func (l Location) Password() string { return l.password }

// HasCredentials reports whether a username or password was supplied.
func (l Location) HasCredentials() bool {
	return l.username != "" || l.password != ""
}

// Timeout bounds connection establishment.
func (l Location) Timeout() time.Duration {
	return l.timeout
}

// Equal reports whether l and other address the same URL with the same
// credentials. The timeout does not take part in the comparison.
func (l Location) Equal(other Location) bool {
	return l.url.String() == other.url.String() &&
		l.username == other.username &&
		l.password == other.password
}
