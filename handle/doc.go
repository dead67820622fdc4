// Package handle provides a buffered, seekable reader on top of a forward-only
// byte stream that can be reopened at an arbitrary offset.
//
// A [Source] owns the underlying stream. [Handle] tracks the logical cursor,
// buffers reads, and decides how each seek is satisfied:
//
//   - a short forward seek, or any forward seek on a source that cannot
//     reopen at an offset, reads and discards bytes from the current stream;
//   - every other seek asks the source to [Source.Recreate] the stream and
//     then discards whatever remains between the reopened position and the
//     target.
//
// Primitive values can be read with a configurable [binary.ByteOrder]:
//
//	h, err := handle.New(ctx, src, handle.WithByteOrder(binary.LittleEndian))
//	if _, err := h.Seek(128, io.SeekStart); err != nil { ... }
//	magic, err := h.ReadUint32()
//
// A Handle is read-only and must not be used from more than one goroutine at
// a time.
package handle
