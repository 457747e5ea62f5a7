package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultWebhookTimeout = 10 * time.Second

	// DefaultExclude skips profiles whose file name contains "extended".
	DefaultExclude = "**/*extended*"
	// DefaultExcludeDir skips every profile below a directory whose name
	// contains "extended".
	DefaultExcludeDir = "**/*extended*/**"
)

// DefaultExcludes returns the exclude patterns used when a config names none.
// Together they skip any profile whose path contains "extended".
func DefaultExcludes() []string {
	return []string{DefaultExclude, DefaultExcludeDir}
}

// Environment variable names.
const (
	EnvExclude = "PROFJSON_EXCLUDE"
)

// DefaultConfig returns a configuration that applies no transforms.
func DefaultConfig() *Config {
	return &Config{
		RemoveTimeUnit:    []string{},
		RemoveWhiteSpaces: []string{},
		RemoveLineFeed:    []string{},
		Exclude:           DefaultExcludes(),
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if v, ok := os.LookupEnv(EnvExclude); ok {
		c.Exclude = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
