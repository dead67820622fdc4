package download

import (
	"errors"
	"fmt"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
	ErrQueueShutdown         = errors.New("queue shut down")
)

type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Range selects Length bytes starting at Offset. A negative Length reads to
// the end of the source.
type Range struct {
	Offset int64
	Length int64
}

func (r Range) String() string {
	if r.Length < 0 {
		return fmt.Sprintf("%d-", r.Offset)
	}
	return fmt.Sprintf("%d-%d", r.Offset, r.Offset+r.Length-1)
}
