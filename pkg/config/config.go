package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configuration files that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads and validates a configuration file.
// Files ending in .json or .jsonc may contain comments and trailing commas.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the validated default configuration when path is empty.
func LoadOrDefault(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("validating config: %w", err)
		}
		return cfg, nil
	}
	return Load(ctx, path)
}

// Parse decodes configuration data. ext selects JSON comment stripping (".json", ".jsonc");
// anything else is read as YAML.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing config file: %w", ErrInvalidConfig, err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors and indexes the transform lists.
func Validate(cfg *Config) error {
	for name, props := range cfg.Transforms() {
		for i, p := range props {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("%w: %s[%d]: property name is empty", ErrInvalidConfig, name, i)
			}
		}
	}

	for i, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: exclude[%d]: invalid pattern %q", ErrInvalidConfig, i, pattern)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("%w: webhooks[%d] (%s): %w", ErrInvalidConfig, i, name, err)
		}
	}

	cfg.sets = buildSets(cfg)
	return nil
}

// Excluded reports whether a profile path matches one of the exclude patterns.
// Patterns are matched against the slash-separated path.
func (c *Config) Excluded(path string) bool {
	p := filepath.ToSlash(path)
	for _, pattern := range c.Exclude {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// ValidateWebhook checks one webhook and fills in its defaults (trigger
// always, DefaultWebhookTimeout). ${VAR} references in the token are expanded.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerAlways
	case WebhookTriggerAlways, WebhookTriggerOnDiagnostics, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be always, on_diagnostics, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
