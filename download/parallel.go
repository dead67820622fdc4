package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/adamwoolhether/httpseek/handle"
)

// Opener returns a new handle on the resource being downloaded.
type Opener func(ctx context.Context) (*handle.Handle, error)

// Parallel copies the whole resource to destPath in up to parts concurrent
// ranges, each read through its own handle. If the first handle reports
// that its source can not reopen at an offset, the resource is copied
// sequentially through that handle.
func Parallel(ctx context.Context, open Opener, parts int, destPath string, logger *slog.Logger, optFns ...Option) error {
	if parts < 1 {
		return fmt.Errorf("parts must be positive, got %d", parts)
	}

	opts, err := newOptions(optFns)
	if err != nil {
		return err
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			return nil
		}
	}

	first, err := open(ctx)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer first.Close()

	total, err := first.Length()
	if err != nil {
		return fmt.Errorf("resolving length: %w", err)
	}

	ranges := split(total, parts)
	if len(ranges) < 2 || !first.Source().CanRecreate() {
		logger.Debug("downloading sequentially", "parts", len(ranges), "resumable", first.Source().CanRecreate())
		return ToFile(ctx, first, Range{Offset: 0, Length: total}, destPath, logger, optFns...)
	}

	var progress io.Writer = io.Discard
	if opts.progress {
		progress = newProgressWriter(io.Discard, logger, total)
	}

	return writeAtomic(destPath, logger, func(file *os.File) error {
		if err := file.Truncate(total); err != nil {
			return fmt.Errorf("allocating temp file: %w", err)
		}

		q := NewQueue(len(ranges), true)
		for i, rng := range ranges {
			q.Start(ctx, func(ctx context.Context) error {
				h := first
				if i > 0 {
					var err error
					if h, err = open(ctx); err != nil {
						return fmt.Errorf("opening part %s: %w", rng, err)
					}
				}
				defer h.Close()

				logger.Debug("downloading part", "range", rng.String())

				return copyPart(ctx, h, file, rng, progress)
			})
		}

		if err := q.Wait(); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
			}
			return err
		}

		return opts.checksum.VerifyFile(file.Name())
	})
}

func copyPart(ctx context.Context, h *handle.Handle, file *os.File, rng Range, progress io.Writer) error {
	if _, err := h.Seek(rng.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking part %s: %w", rng, err)
	}

	w := io.MultiWriter(io.NewOffsetWriter(file, rng.Offset), progress)
	n, err := io.Copy(w, &contextReader{ctx: ctx, r: io.LimitReader(h, rng.Length)})
	if err != nil {
		return fmt.Errorf("copying part %s: %w", rng, err)
	}

	if n != rng.Length {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("part %s: expected %d bytes, got %d", rng, rng.Length, n),
		}
	}

	return nil
}

// split divides total bytes into at most parts contiguous ranges. Empty
// ranges are never returned.
func split(total int64, parts int) []Range {
	n := min(int64(parts), total)
	if n <= 0 {
		return nil
	}

	size, rem := total/n, total%n
	ranges := make([]Range, 0, n)

	var off int64
	for i := range n {
		l := size
		if i < rem {
			l++
		}
		ranges = append(ranges, Range{Offset: off, Length: l})
		off += l
	}

	return ranges
}
