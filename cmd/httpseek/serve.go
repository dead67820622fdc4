package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adamwoolhether/httpseek/internal/config"
	"github.com/adamwoolhether/httpseek/internal/fileserver"
	"go.opentelemetry.io/otel"
)

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML configuration file")
	addr := fs.String("addr", "", "Listen address (default from config, :8080)")
	dir := fs.String("dir", "", "Directory to serve (default from config, .)")
	noRanges := fs.Bool("no-ranges", false, "Ignore Range headers and always send the full file")
	username := fs.String("user", "", "Require Basic auth with this username")
	password := fs.String("password", "", "Basic auth password")
	verbose := fs.Bool("v", false, "Log debug output")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: httpseek serve [options]

Serve a directory with byte-range support until interrupted.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	common := commonFlags{configPath: *configPath, verbose: *verbose}
	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	sc := cfg.Serve
	if *addr != "" {
		sc.Addr = *addr
	}
	if *dir != "" {
		sc.Dir = *dir
	}
	if *noRanges {
		sc.NoRanges = true
	}
	if *username != "" {
		sc.Username, sc.Password = *username, *password
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, sc, common.logger(stderr)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	return ExitSuccess
}

func serve(ctx context.Context, sc config.ServeConfig, logger *slog.Logger) error {
	fi, err := os.Stat(sc.Dir)
	if err != nil {
		return fmt.Errorf("serve dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("serve dir: %s is not a directory", sc.Dir)
	}

	mw := []fileserver.Middleware{fileserver.Logger(logger), fileserver.Errors(logger), fileserver.Panics()}
	if sc.Username != "" {
		mw = append(mw, fileserver.BasicAuth("httpseek", sc.Username, sc.Password))
	}
	if sc.NoRanges {
		mw = append(mw, fileserver.NoRanges())
	}

	app := fileserver.New(os.DirFS(sc.Dir),
		fileserver.WithLogger(logger),
		fileserver.WithTracer(otel.Tracer("github.com/adamwoolhether/httpseek/internal/fileserver")),
		fileserver.WithMiddleware(mw...),
	)

	srv := fileserver.NewServer(app,
		fileserver.WithHost(sc.Addr),
		fileserver.WithServerLogger(logger),
	)

	return srv.Run(ctx)
}
