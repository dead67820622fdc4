package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/adamwoolhether/httpseek"
	"github.com/adamwoolhether/httpseek/client"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/internal/config"
)

// commonFlags are shared by the commands that open a resource.
type commonFlags struct {
	configPath string
	username   string
	password   string
	timeout    time.Duration
	rps        int
	burst      int
	reconnects bool
	verbose    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.username, "user", "", "Basic auth username")
	fs.StringVar(&c.password, "password", "", "Basic auth password")
	fs.DurationVar(&c.timeout, "timeout", 0, "Connection timeout (default from config, 10s)")
	fs.IntVar(&c.rps, "throttle-rps", 0, "Maximum requests per second")
	fs.IntVar(&c.burst, "throttle-burst", 0, "Request burst size")
	fs.BoolVar(&c.reconnects, "throttle-reconnects", false, "Throttle only requests resuming past byte 0")
	fs.BoolVar(&c.verbose, "v", false, "Log debug output")
}

// load resolves the configuration: defaults, then the YAML file, then the
// environment, then flags.
func (c *commonFlags) load() (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(c.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	if c.username != "" {
		cfg.Username = c.username
	}
	if c.password != "" {
		cfg.Password = c.password
	}
	if c.timeout != 0 {
		cfg.Timeout = c.timeout
	}
	if c.rps != 0 {
		cfg.Throttle.RPS = c.rps
	}
	if c.burst != 0 {
		cfg.Throttle.Burst = c.burst
	}
	if c.reconnects {
		cfg.Throttle.ReconnectsOnly = true
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

func (c *commonFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openOptions maps the configuration onto handle options.
func openOptions(cfg config.Config, logger *slog.Logger) []httpseek.Option {
	clientOpts := []client.Option{client.WithUserAgent(cfg.UserAgent)}
	if cfg.Throttle.Enabled() {
		clientOpts = append(clientOpts, client.WithThrottle(cfg.Throttle.Limits()))
	}

	opts := []httpseek.Option{
		httpseek.WithLogger(logger),
		httpseek.WithTimeout(cfg.Timeout),
		httpseek.WithClientOptions(clientOpts...),
		httpseek.WithHandleOptions(
			handle.WithJumpCutoff(cfg.JumpCutoff),
			handle.WithBufferSize(int(cfg.BufferSize)),
		),
	}
	if cfg.Username != "" || cfg.Password != "" {
		opts = append(opts, httpseek.WithCredentials(cfg.Username, cfg.Password))
	}

	return opts
}

// singleArg returns the only positional argument of fs.
func singleArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s, got %d arguments", what, fs.NArg())
	}
	return fs.Arg(0), nil
}
