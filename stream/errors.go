package stream

import (
	"errors"
	"fmt"

	"github.com/adamwoolhether/httpseek/handle"
)

var (
	// ErrConnectionFailure is the sentinel wrapped by [ConnectionError].
	ErrConnectionFailure = errors.New("HTTP connection failure")
	// ErrContentRange reports a missing or malformed Content-Range header.
	ErrContentRange = errors.New("invalid content range")
	// ErrStreamClose reports a failure to close a replaced response body.
	ErrStreamClose = errors.New("closing replaced stream")
	// ErrClosed is returned by every operation after [Engine.Close].
	ErrClosed = errors.New("stream closed")
	// ErrUnknownLength is returned when the server declares no length.
	ErrUnknownLength = handle.ErrUnknownLength
)

// ConnectionError is returned when the server answers a GET with anything
// other than 200 OK or 206 Partial Content.
type ConnectionError struct {
	StatusCode int
	Err        error
}

func newConnectionError(code int) *ConnectionError {
	return &ConnectionError{StatusCode: code, Err: ErrConnectionFailure}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%v, errorcode: %d", e.Err, e.StatusCode)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
