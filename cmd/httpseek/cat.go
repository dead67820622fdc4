package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/adamwoolhether/httpseek"
)

func runCat(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cat", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	offset := fs.Int64("offset", 0, "First byte to write; negative counts from the end")
	length := fs.Int64("length", -1, "Number of bytes to write; negative writes to the end")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: httpseek cat [options] <url>

Write a byte range of a resource to stdout.

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

	h, err := httpseek.Open(context.Background(), rawURL, openOptions(cfg, common.logger(stderr))...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer h.Close()

	whence := io.SeekStart
	if *offset < 0 {
		whence = io.SeekEnd
	}
	if _, err := h.Seek(*offset, whence); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitSourceNotAccess
	}

	var r io.Reader = h
	if *length >= 0 {
		r = io.LimitReader(h, *length)
	}

	if _, err := io.Copy(stdout, r); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitSourceNotAccess
	}

	return ExitSuccess
}
