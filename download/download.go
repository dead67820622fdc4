package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adamwoolhether/httpseek/handle"
)

// ToFile copies rng of h to destPath. The handle is left positioned after
// the last byte copied.
func ToFile(ctx context.Context, h *handle.Handle, rng Range, destPath string, logger *slog.Logger, optFns ...Option) error {
	if rng.Offset < 0 {
		return fmt.Errorf("negative offset %d", rng.Offset)
	}

	if rng.Length < 0 {
		n, err := h.Length()
		if err != nil {
			return fmt.Errorf("resolving range %s: %w", rng, err)
		}
		rng.Length = max(n-rng.Offset, 0)
	}

	if _, err := h.Seek(rng.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to %d: %w", rng.Offset, err)
	}

	logger.Debug("downloading range", "range", rng.String(), "path", destPath)

	return Handle(ctx, io.LimitReader(h, rng.Length), rng.Length, destPath, logger, optFns...)
}

// Handle streams body to a temp file in the same directory as destPath,
// which is renamed on success. On any error the temp file is removed.
// A negative contentLength disables the length check.
func Handle(ctx context.Context, body io.Reader, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) error {
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

	body = &contextReader{ctx: ctx, r: body}

	return writeAtomic(destPath, logger, func(file *os.File) error {
		var writer io.Writer = file
		if opts.checksum != nil {
			writer = io.MultiWriter(writer, opts.checksum)
		}

		if opts.progress {
			writer = newProgressWriter(writer, logger, contentLength)
		}

		n, err := io.Copy(writer, body)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
			}

			return fmt.Errorf("copying body: %w", err)
		}

		if contentLength >= 0 && n != contentLength {
			return &Error{
				Err:    ErrContentLengthMismatch,
				Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
			}
		}

		return opts.checksum.Verify()
	})
}

// writeAtomic hands fn a temp file next to destPath and renames it to
// destPath once fn succeeds.
func writeAtomic(destPath string, logger *slog.Logger, fn func(*os.File) error) error {
	file, err := os.CreateTemp(filepath.Dir(destPath), ".httpseek-dl-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	if err := fn(file); err != nil {
		return err
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return nil
}
