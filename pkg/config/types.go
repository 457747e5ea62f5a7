// Package config provides configuration loading and validation for profjson.
package config

import (
	"slices"
	"time"
)

// Transform names understood in configuration files.
const (
	TransformRemoveTimeUnit    = "remove-time-unit"
	TransformRemoveWhiteSpaces = "remove-white-spaces"
	TransformRemoveLineFeed    = "remove-line-feed"
)

// Wildcard is the property name that stands for every property when MatchAll is set.
const Wildcard = "all"

// Config is the root configuration structure, loaded from YAML, JSON or JSONC.
type Config struct {
	// RemoveTimeUnit lists properties whose last character (a time unit) is dropped.
	RemoveTimeUnit []string `yaml:"remove-time-unit"`

	// RemoveWhiteSpaces lists properties whose spaces are deleted.
	RemoveWhiteSpaces []string `yaml:"remove-white-spaces"`

	// RemoveLineFeed lists properties whose backslashes are deleted.
	RemoveLineFeed []string `yaml:"remove-line-feed"`

	// MatchAll makes the "all" entry of a transform list apply to every property.
	MatchAll bool `yaml:"match_all,omitempty"`

	// Exclude holds doublestar patterns of profile paths that are not converted.
	Exclude []string `yaml:"exclude,omitempty"`

	// Webhooks receive the converted document after a successful run.
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// sets is populated during validation.
	sets map[string]map[string]struct{}
}

// Transforms returns the configured property lists keyed by transform name.
func (c *Config) Transforms() map[string][]string {
	return map[string][]string{
		TransformRemoveTimeUnit:    c.RemoveTimeUnit,
		TransformRemoveWhiteSpaces: c.RemoveWhiteSpaces,
		TransformRemoveLineFeed:    c.RemoveLineFeed,
	}
}

// Applies reports whether transform is configured for property.
func (c *Config) Applies(transform, property string) bool {
	contains := func(name string) bool {
		if c.sets != nil {
			_, ok := c.sets[transform][name]
			return ok
		}
		return slices.Contains(c.Transforms()[transform], name)
	}
	return contains(property) || (c.MatchAll && contains(Wildcard))
}

func buildSets(c *Config) map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, 3)
	for name, props := range c.Transforms() {
		set := make(map[string]struct{}, len(props))
		for _, p := range props {
			set[p] = struct{}{}
		}
		sets[name] = set
	}
	return sets
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerAlways fires after every successful conversion (default).
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerOnDiagnostics fires only when the parser recovered from malformed limits.
	WebhookTriggerOnDiagnostics WebhookTrigger = "on_diagnostics"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for publishing converted profiles.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "always" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
