// Package config holds the server-wide configuration for treedb, parsed
// from CLI flags, environment variables and .env files by cmd/serve.
package config

import (
	"fmt"
	"strings"
)

// Config holds all configuration parameters for a running treedb server.
type Config struct {
	// Endpoint is the TCP address the client listener binds to (e.g. ":9090").
	Endpoint string

	// MetricsEndpoint is the address the /metrics HTTP endpoint binds to.
	// Empty disables metrics serving.
	MetricsEndpoint string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// MaxNameValueLen is the maximum length in bytes of a name or value
	// accepted by the command interpreter. The wire protocol never allows
	// this to exceed 255.
	MaxNameValueLen int
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.MaxNameValueLen <= 0 || c.MaxNameValueLen > 255 {
		return fmt.Errorf("max-len must be between 1 and 255, got %d", c.MaxNameValueLen)
	}
	return nil
}

// String returns a formatted, human-readable rendering of the configuration
// for startup logging.
func (c *Config) String() string {
	var sb strings.Builder
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-18s: %s\n", name, value))
	}
	sb.WriteString("\nSERVER\n")
	addField("Endpoint", c.Endpoint)
	addField("Metrics Endpoint", orNone(c.MetricsEndpoint))
	addField("Log Level", c.LogLevel)
	addField("Max Name/Value Len", fmt.Sprintf("%d", c.MaxNameValueLen))
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}
