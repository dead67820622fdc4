// Package config defines configuration for the httpseek CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (HTTPSEEK_ prefix)
//   - YAML configuration file
//
// Sizes accept KB, MB and GB suffixes, durations use time.ParseDuration.
//
//	username: reader
//	password: secret
//	timeout: 5s
//	buffer_size: 64KB
//	throttle:
//	  rps: 10
//	  burst: 2
//	serve:
//	  addr: :8080
//	  dir: ./public
package config
