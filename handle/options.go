package handle

import (
	"encoding/binary"
	"errors"
	"log/slog"
)

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	order      binary.ByteOrder
	jumpCutoff int64
	bufSize    int
	logger     *slog.Logger
}

// WithByteOrder sets the order used by the typed read methods. Default is
// big endian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(opts *options) error {
		if order == nil {
			return errors.New("byte order must not be nil")
		}
		opts.order = order
		return nil
	}
}

// WithJumpCutoff sets the largest forward seek that discards bytes instead
// of reopening the stream. Default is [DefaultJumpCutoff].
func WithJumpCutoff(n int64) Option {
	return func(opts *options) error {
		if n < 0 {
			return errors.New("jump cutoff must not be negative")
		}
		opts.jumpCutoff = n
		return nil
	}
}

// WithBufferSize sets the read buffer size. Default is [DefaultBufferSize].
func WithBufferSize(n int) Option {
	return func(opts *options) error {
		if n <= 0 {
			return errors.New("buffer size must be positive")
		}
		opts.bufSize = n
		return nil
	}
}

// WithLogger sets the logger used for seek diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}
