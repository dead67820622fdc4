// Package stream implements a resumable, seekable byte stream over HTTP(S).
//
// An [Engine] connects lazily with "Range: bytes=0-" and learns from the
// answer whether the server honors byte ranges. While it does, every seek
// outside the current stream reconnects at the target offset. Once a server
// answers a ranged request with 200 OK, the engine stops asking and forward
// seeks are satisfied by reading and discarding bytes from the stream that
// is already open.
//
// HTTP Basic challenges are answered by the [client] package. The first
// challenge is remembered, and every later request sends the credentials
// without waiting to be asked.
//
// The Engine is a [handle.Source]; wrap it with [handle.New] to get an
// [io.ReadSeekCloser]:
//
//	loc, _ := location.New("https://example.com/big.bin")
//	e, _ := stream.New(loc)
//	h, _ := handle.New(ctx, e)
//	defer h.Close()
//
// An Engine serves one sequential reader and is not safe for concurrent use.
package stream
