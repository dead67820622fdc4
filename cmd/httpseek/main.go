// Command httpseek inspects, reads and serves remote files through
// seekable HTTP handles.
package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitSourceNotAccess  = 3
	ExitStorageError     = 5
	ExitValidationFailed = 7
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "stat":
		return runStat(cmdArgs, stdout, stderr)
	case "cat":
		return runCat(cmdArgs, stdout, stderr)
	case "fetch":
		return runFetch(cmdArgs, stdout, stderr)
	case "serve":
		return runServe(cmdArgs, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stderr)
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return ExitInvalidArgs
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: httpseek <command> [options]

Commands:
  stat   Print length, range support and modification time of a resource
  cat    Write a byte range of a resource to stdout
  fetch  Copy a byte range of a resource to a local file
  serve  Serve a directory with byte-range support

Run 'httpseek <command> -h' for command-specific help.`)
}
