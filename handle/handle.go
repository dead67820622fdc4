package handle

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

const (
	// DefaultJumpCutoff is the largest forward seek satisfied by
	// discarding bytes when the source could reopen instead.
	DefaultJumpCutoff = 10000

	// DefaultBufferSize is the read buffer size.
	DefaultBufferSize = 32 << 10 // 32KB
)

var (
	ErrInvalidSeek = errors.New("invalid seek")
	ErrClosed      = errors.New("handle closed")
)

// Handle is a read-only [io.ReadSeekCloser] over a [Source].
type Handle struct {
	ctx        context.Context
	src        Source
	logger     *slog.Logger
	order      binary.ByteOrder
	jumpCutoff int64
	bufSize    int

	br    *bufio.Reader
	stale bool

	// offset is the logical cursor. pos is the position of the next byte
	// in br. They differ only after a seek to or past the end, in which
	// case reads report io.EOF until the next seek.
	offset int64
	pos    int64

	closed bool
	buf    [8]byte
}

// New returns a Handle reading from src. ctx is used for every request the
// source makes on behalf of the handle.
func New(ctx context.Context, src Source, optFns ...Option) (*Handle, error) {
	if src == nil {
		return nil, errors.New("source must not be nil")
	}

	opts := options{
		order:      binary.BigEndian,
		jumpCutoff: DefaultJumpCutoff,
		bufSize:    DefaultBufferSize,
		logger:     slog.Default(),
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying handle option: %w", err)
		}
	}

	h := Handle{
		ctx:        ctx,
		src:        src,
		logger:     opts.logger,
		order:      opts.order,
		jumpCutoff: opts.jumpCutoff,
		bufSize:    opts.bufSize,
	}

	return &h, nil
}

// Source returns the source the handle reads from.
func (h *Handle) Source() Source {
	return h.src
}

// Offset returns the logical read position.
func (h *Handle) Offset() int64 {
	return h.offset
}

// Length returns the total number of bytes in the source.
func (h *Handle) Length() (int64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	return h.src.Length(h.ctx)
}

// ByteOrder returns the order used by the typed read methods.
func (h *Handle) ByteOrder() binary.ByteOrder {
	return h.order
}

// SetByteOrder changes the order used by the typed read methods.
func (h *Handle) SetByteOrder(order binary.ByteOrder) {
	h.order = order
}

func (h *Handle) Read(p []byte) (int, error) {
	if h.offset != h.pos {
		return 0, io.EOF
	}

	r, err := h.reader()
	if err != nil {
		return 0, err
	}

	n, err := r.Read(p)
	h.pos += int64(n)
	h.offset = h.pos

	return n, err
}

// ReadByte implements io.ByteReader.
func (h *Handle) ReadByte() (byte, error) {
	if h.offset != h.pos {
		return 0, io.EOF
	}

	r, err := h.reader()
	if err != nil {
		return 0, err
	}

	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	h.pos++
	h.offset = h.pos

	return b, nil
}

// Write always fails; handles are read-only.
func (h *Handle) Write([]byte) (int, error) {
	return 0, fmt.Errorf("handle is read-only: %w", errors.ErrUnsupported)
}

// Seek implements io.Seeker. Seeking to or past the end succeeds and
// subsequent reads return io.EOF.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h.closed {
		return h.offset, ErrClosed
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = h.offset + offset
	case io.SeekEnd:
		n, err := h.src.Length(h.ctx)
		if err != nil {
			return h.offset, fmt.Errorf("seek from end: %w", err)
		}
		target = n + offset
	default:
		return h.offset, fmt.Errorf("%w: whence %d", ErrInvalidSeek, whence)
	}

	if target < 0 {
		return h.offset, fmt.Errorf("%w: negative position %d", ErrInvalidSeek, target)
	}

	if err := h.seek(target); err != nil {
		return h.offset, err
	}

	return h.offset, nil
}

// Skip advances the cursor by up to n bytes and reports how far it moved.
func (h *Handle) Skip(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	start := h.offset
	if err := h.seek(start + n); err != nil {
		return h.offset - start, err
	}

	return h.offset - start, nil
}

// Close releases the source. Calling Close more than once is a no-op.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.br = nil

	if err := h.src.Close(); err != nil {
		return fmt.Errorf("closing source: %w", err)
	}

	return nil
}

// seek moves the cursor to target.
func (h *Handle) seek(target int64) error {
	if target > h.pos {
		n, err := h.src.Length(h.ctx)
		switch {
		case errors.Is(err, ErrUnknownLength):
		case err != nil:
			return fmt.Errorf("seek: %w", err)
		case target >= n:
			h.offset = target
			return nil
		}
	}

	delta := target - h.pos
	switch {
	case delta == 0:
	case delta > 0 && (delta <= h.jumpCutoff || !h.src.CanRecreate()):
		if err := h.skip(delta); err != nil {
			return err
		}
	default:
		if err := h.recreate(target); err != nil {
			return err
		}
	}

	h.offset = h.pos

	return nil
}

// recreate asks the source for a stream from which target is reachable and
// discards whatever lies between.
func (h *Handle) recreate(target int64) error {
	re, err := h.src.Recreate(h.ctx, target, h.pos)
	if re.Replaced {
		h.stale = true
		h.pos = re.Offset
		h.offset = h.pos
	}
	if err != nil {
		return fmt.Errorf("recreating stream at %d: %w", target, err)
	}

	h.logger.Debug("stream recreated", "target", target, "offset", h.pos, "replaced", re.Replaced)

	if gap := target - h.pos; gap > 0 {
		return h.skip(gap)
	}

	return nil
}

// skip discards n bytes from the current stream.
func (h *Handle) skip(n int64) error {
	r, err := h.reader()
	if err != nil {
		return err
	}

	for n > 0 {
		chunk := int(min(n, math.MaxInt32))
		d, err := r.Discard(chunk)
		h.pos += int64(d)
		n -= int64(d)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			h.offset = h.pos
			return fmt.Errorf("skipping to %d: %w", h.pos+n, err)
		}
	}

	return nil
}

// reader returns the buffered view of the source's current stream.
func (h *Handle) reader() (*bufio.Reader, error) {
	if h.closed {
		return nil, ErrClosed
	}
	if h.br != nil && !h.stale {
		return h.br, nil
	}

	s, err := h.src.Stream(h.ctx)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if h.br == nil {
		h.br = bufio.NewReaderSize(s, h.bufSize)
	} else {
		h.br.Reset(s)
	}
	h.stale = false

	return h.br, nil
}
