package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"hash"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/adamwoolhether/httpseek"
	"github.com/adamwoolhether/httpseek/download"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/stream"
	"github.com/cespare/xxhash/v2"
)

func runFetch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	output := fs.String("o", "", "Output file path (required)")
	offset := fs.Int64("offset", 0, "First byte to copy")
	length := fs.Int64("length", -1, "Number of bytes to copy; negative copies to the end")
	parts := fs.Int("parts", 0, "Parallel parts for whole-file copies (default from config, 1)")
	checksum := fs.String("checksum", "", "Expected checksum as sha256:<hex> or xxhash:<hex>")
	progress := fs.Bool("progress", false, "Log download progress")
	skipExisting := fs.Bool("skip-existing", false, "Do nothing if the output file exists")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: httpseek fetch [options] -o <file> <url>

Copy a byte range of a resource to a local file. The file only appears
once the copy is complete and verified.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	rawURL, err := singleArg(fs, "url")
	if err != nil || *output == "" {
		fmt.Fprintln(stderr, "Error: a url and -o are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if *parts > 0 {
		cfg.Parts = *parts
	}

	var dlOpts []download.Option
	if *checksum != "" {
		h, expected, err := parseChecksum(*checksum)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		dlOpts = append(dlOpts, download.WithChecksum(h, expected))
	}
	if *progress {
		dlOpts = append(dlOpts, download.WithProgress())
	}
	if *skipExisting {
		dlOpts = append(dlOpts, download.WithSkipExisting())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := common.logger(stderr)
	opts := openOptions(cfg, logger)

	if cfg.Parts > 1 && *offset == 0 && *length < 0 {
		open := func(ctx context.Context) (*handle.Handle, error) {
			return httpseek.Open(ctx, rawURL, opts...)
		}
		err = download.Parallel(ctx, open, cfg.Parts, *output, logger, dlOpts...)
	} else {
		var h *handle.Handle
		if h, err = httpseek.Open(ctx, rawURL, opts...); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		defer h.Close()

		rng := download.Range{Offset: *offset, Length: *length}
		err = download.ToFile(ctx, h, rng, *output, logger, dlOpts...)
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return fetchExitCode(err)
	}

	fmt.Fprintf(stdout, "%s\n", *output)

	return ExitSuccess
}

// parseChecksum splits "algo:hex" into a hash and its expected sum.
func parseChecksum(v string) (hash.Hash, string, error) {
	algo, sum, ok := strings.Cut(v, ":")
	if !ok || sum == "" {
		return nil, "", fmt.Errorf("checksum %q: expected <algo>:<hex>", v)
	}

	switch strings.ToLower(algo) {
	case "sha256":
		return sha256.New(), sum, nil
	case "xxhash":
		return xxhash.New(), sum, nil
	default:
		return nil, "", fmt.Errorf("checksum %q: unknown algorithm %q", v, algo)
	}
}

func fetchExitCode(err error) int {
	switch {
	case errors.Is(err, download.ErrChecksumMismatch), errors.Is(err, download.ErrContentLengthMismatch):
		return ExitValidationFailed
	case errors.Is(err, stream.ErrConnectionFailure):
		return ExitSourceNotAccess
	default:
		return ExitStorageError
	}
}
