// Package download copies byte ranges of seekable handles to disk with
// optional checksum validation and progress reporting.
//
// # Single Download
//
// [ToFile] seeks a handle to the start of a [Range] and writes the range to
// a temporary file alongside the destination path, then atomically renames
// it on success:
//
//	err := download.ToFile(ctx, h, download.Range{Offset: 0, Length: -1}, destPath, logger,
//		download.WithChecksum(sha256.New(), expected),
//	)
//
// [Handle] does the same for any [io.Reader] of known or unknown length.
//
// # Parallel Download
//
// [Parallel] splits a resource into parts and copies them concurrently,
// each through its own handle, bounded by a [Queue]. Sources that can not
// reopen at an offset are copied sequentially instead.
package download
