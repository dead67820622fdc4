package location

import (
	"errors"
	"time"
)

// Option is a functional option for [New] and [FromURL].
type Option func(*options) error

type options struct {
	username string
	password string
	timeout  time.Duration
}

// WithCredentials sets the Basic authentication username and password,
// replacing any userinfo carried by the URL.
func WithCredentials(username, password string) Option {
	return func(opts *options) error {
		opts.username = username
		opts.password = password
		return nil
	}
}

// WithTimeout sets the connection timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(opts *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		opts.timeout = d
		return nil
	}
}
