package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adamwoolhether/httpseek/client/throttle"
	"gopkg.in/yaml.v3"
)

// Config defines configuration for the httpseek CLI.
type Config struct {
	Username   string         `yaml:"username"`
	Password   string         `yaml:"password"`
	Timeout    time.Duration  `yaml:"timeout"`
	UserAgent  string         `yaml:"user_agent"`
	JumpCutoff int64          `yaml:"jump_cutoff"`
	BufferSize int64          `yaml:"buffer_size"`
	Parts      int            `yaml:"parts"`
	Throttle   ThrottleConfig `yaml:"throttle"`
	Serve      ServeConfig    `yaml:"serve"`
}

// ThrottleConfig limits outgoing requests. Zero values disable it.
type ThrottleConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
	// ReconnectsOnly exempts the opening request of each stream.
	ReconnectsOnly bool `yaml:"reconnects_only"`
}

// Enabled reports whether requests are throttled.
func (t ThrottleConfig) Enabled() bool {
	return t.RPS > 0 || t.Burst > 0
}

// Limits converts t to the client's throttle budget.
func (t ThrottleConfig) Limits() throttle.Config {
	cfg := throttle.Config{RPS: t.RPS, Burst: t.Burst}
	if t.ReconnectsOnly {
		cfg.Scope = throttle.Reconnects
	}
	return cfg
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Addr     string `yaml:"addr"`
	Dir      string `yaml:"dir"`
	NoRanges bool   `yaml:"no_ranges"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Timeout:    10 * time.Second,
		UserAgent:  "httpseek",
		JumpCutoff: 10000,
		BufferSize: 32 * 1024, // 32KB
		Parts:      1,
		Serve: ServeConfig{
			Addr: ":8080",
			Dir:  ".",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and sizes.
type yamlConfig struct {
	Username   string         `yaml:"username"`
	Password   string         `yaml:"password"`
	Timeout    string         `yaml:"timeout"`
	UserAgent  string         `yaml:"user_agent"`
	JumpCutoff *int64         `yaml:"jump_cutoff"`
	BufferSize string         `yaml:"buffer_size"`
	Parts      int            `yaml:"parts"`
	Throttle   ThrottleConfig `yaml:"throttle"`
	Serve      ServeConfig    `yaml:"serve"`
}

// LoadFromFile loads configuration from a YAML file on top of the
// defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	cfg.Username = yc.Username
	cfg.Password = yc.Password
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.JumpCutoff != nil {
		cfg.JumpCutoff = *yc.JumpCutoff
	}
	if yc.BufferSize != "" {
		size, err := ParseBytes(yc.BufferSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse buffer_size: %w", err)
		}
		cfg.BufferSize = size
	}
	if yc.Parts != 0 {
		cfg.Parts = yc.Parts
	}
	cfg.Throttle = yc.Throttle
	if yc.Serve.Addr != "" {
		cfg.Serve.Addr = yc.Serve.Addr
	}
	if yc.Serve.Dir != "" {
		cfg.Serve.Dir = yc.Serve.Dir
	}
	cfg.Serve.NoRanges = yc.Serve.NoRanges
	cfg.Serve.Username = yc.Serve.Username
	cfg.Serve.Password = yc.Serve.Password

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the HTTPSEEK_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("HTTPSEEK_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("HTTPSEEK_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("HTTPSEEK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse HTTPSEEK_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("HTTPSEEK_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("HTTPSEEK_JUMP_CUTOFF"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse HTTPSEEK_JUMP_CUTOFF: %w", err)
		}
		c.JumpCutoff = n
	}
	if v := os.Getenv("HTTPSEEK_BUFFER_SIZE"); v != "" {
		size, err := ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse HTTPSEEK_BUFFER_SIZE: %w", err)
		}
		c.BufferSize = size
	}
	if v := os.Getenv("HTTPSEEK_PARTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HTTPSEEK_PARTS: %w", err)
		}
		c.Parts = n
	}
	if v := os.Getenv("HTTPSEEK_THROTTLE_RPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HTTPSEEK_THROTTLE_RPS: %w", err)
		}
		c.Throttle.RPS = n
	}
	if v := os.Getenv("HTTPSEEK_THROTTLE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HTTPSEEK_THROTTLE_BURST: %w", err)
		}
		c.Throttle.Burst = n
	}
	if v := os.Getenv("HTTPSEEK_THROTTLE_RECONNECTS_ONLY"); v != "" {
		c.Throttle.ReconnectsOnly = v == "true" || v == "1"
	}
	if v := os.Getenv("HTTPSEEK_SERVE_ADDR"); v != "" {
		c.Serve.Addr = v
	}
	if v := os.Getenv("HTTPSEEK_SERVE_DIR"); v != "" {
		c.Serve.Dir = v
	}
	if v := os.Getenv("HTTPSEEK_SERVE_NO_RANGES"); v != "" {
		c.Serve.NoRanges = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.JumpCutoff < 0 {
		return errors.New("config: jump_cutoff must not be negative")
	}
	if c.BufferSize <= 0 {
		return errors.New("config: buffer_size must be positive")
	}
	if c.Parts <= 0 {
		return errors.New("config: parts must be positive")
	}
	if c.Throttle.Enabled() && (c.Throttle.RPS <= 0 || c.Throttle.Burst <= 0) {
		return errors.New("config: throttle rps and burst must both be positive")
	}
	if (c.Serve.Username == "") != (c.Serve.Password == "") {
		return errors.New("config: serve username and password must be set together")
	}
	return nil
}

// ParseBytes parses sizes such as "512", "64KB" or "1.5MB".
func ParseBytes(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier float64 = 1
	for _, unit := range []struct {
		suffix string
		size   float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			multiplier = unit.size
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}

	return int64(value * multiplier), nil
}
