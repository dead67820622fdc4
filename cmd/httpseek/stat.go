package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/adamwoolhether/httpseek"
	"github.com/adamwoolhether/httpseek/stream"
)

func runStat(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stat", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: httpseek stat [options] <url>

Print the length, range support and modification time of a resource.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	rawURL, err := singleArg(fs, "url")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx := context.Background()

	h, err := httpseek.Open(ctx, rawURL, openOptions(cfg, common.logger(stderr))...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer h.Close()

	fmt.Fprintf(stdout, "url:\t%s\n", rawURL)

	if e, ok := h.Source().(*stream.Engine); ok {
		exists, err := e.Exists(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitSourceNotAccess
		}
		fmt.Fprintf(stdout, "exists:\t%v\n", exists)
		if !exists {
			return ExitSourceNotAccess
		}
	}

	length, err := h.Length()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitSourceNotAccess
	}
	fmt.Fprintf(stdout, "length:\t%d\n", length)
	fmt.Fprintf(stdout, "resumable:\t%v\n", h.Source().CanRecreate())

	if e, ok := h.Source().(*stream.Engine); ok {
		fmt.Fprintf(stdout, "auth:\t%v\n", e.AuthRequired())

		modified, err := e.LastModified(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitSourceNotAccess
		}
		if !modified.IsZero() {
			fmt.Fprintf(stdout, "modified:\t%s\n", modified.UTC().Format(time.RFC3339))
		}
	}

	return ExitSuccess
}
