package handle

import (
	"context"
	"errors"
	"io"
)

// ErrUnknownLength is returned by a Source that cannot tell how many bytes
// it holds.
var ErrUnknownLength = errors.New("length unknown")

// Source supplies the bytes behind a [Handle].
type Source interface {
	// Stream returns the current stream. Its next byte sits at the position
	// last reported by Recreate, or 0 if Recreate was never called.
	Stream(ctx context.Context) (io.Reader, error)

	// Recreate prepares the stream so that position pos can be reached.
	// cursor is the position of the next byte the caller would read from
	// the current stream.
	Recreate(ctx context.Context, pos, cursor int64) (Reopened, error)

	// CanRecreate reports whether Recreate can start a stream directly at
	// an arbitrary position.
	CanRecreate() bool

	// Length returns the total number of bytes.
	Length(ctx context.Context) (int64, error)

	Close() error
}

// Reopened describes the stream after a call to [Source.Recreate].
type Reopened struct {
	// Offset is the position of the next byte the stream yields. It is
	// never greater than the requested position.
	Offset int64
	// Replaced is set when Stream now returns a different reader and
	// anything buffered from the old one is stale.
	Replaced bool
}
