// Package convert runs the parser over a batch of profile files.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/parser"
)

// ErrNoProfiles is returned when the inputs name no profile to convert.
var ErrNoProfiles = errors.New("no profiles to convert")

// Inputs names where profile paths come from. At least one field must be set.
type Inputs struct {
	// ProfileList is a file listing profile paths or patterns, one per line.
	ProfileList string

	// DeviceList is a file listing device directories, one per line.
	// Each device contributes every file under its profiles directory.
	DeviceList string

	// Paths are profile paths or doublestar patterns given directly.
	Paths []string
}

// Empty reports whether no input was given.
func (in Inputs) Empty() bool {
	return in.ProfileList == "" && in.DeviceList == "" && len(in.Paths) == 0
}

// Batch is the result of converting every discovered profile.
type Batch struct {
	Profiles    []*parser.Profile
	Diagnostics []parser.Diagnostic

	// Sources are the files that were parsed, in output order.
	Sources []string

	// Skipped are the files left out by exclude patterns.
	Skipped []string

	StartTime time.Time
	EndTime   time.Time
}

// Converter parses batches of profiles with one configuration.
type Converter struct {
	cfg    *config.Config
	parser *parser.Parser
	logger *slog.Logger
	jobs   int
}

// Option configures the Converter.
type Option func(*Converter)

// WithJobs sets how many profiles are parsed at once (default 1).
// The batch keeps discovery order whatever the value.
func WithJobs(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.jobs = n
		}
	}
}

// New creates a Converter. cfg must have been validated.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Converter{
		cfg:    cfg,
		parser: parser.New(cfg, parser.WithLogger(logger)),
		logger: logger,
		jobs:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover resolves the inputs to an ordered list of profile paths, split into
// the ones to convert and the ones excluded by configuration.
// Order: profile list entries, then device profiles, then Paths.
func (c *Converter) Discover(in Inputs) (paths, skipped []string, err error) {
	if in.Empty() {
		return nil, nil, ErrNoProfiles
	}

	var candidates []string

	if in.ProfileList != "" {
		entries, err := parser.ReadList(in.ProfileList)
		if err != nil {
			return nil, nil, fmt.Errorf("reading profile list: %w", err)
		}
		expanded, err := parser.ExpandGlobs(entries)
		if err != nil {
			return nil, nil, fmt.Errorf("expanding profile list: %w", err)
		}
		candidates = append(candidates, expanded...)
	}

	if in.DeviceList != "" {
		devices, err := parser.ReadList(in.DeviceList)
		if err != nil {
			return nil, nil, fmt.Errorf("reading device list: %w", err)
		}
		for _, device := range devices {
			profiles, err := parser.DeviceProfiles(device)
			if err != nil {
				return nil, nil, fmt.Errorf("listing profiles of %s: %w", device, err)
			}
			if len(profiles) == 0 {
				c.logger.Warn("device has no profiles", "device", device)
			}
			candidates = append(candidates, profiles...)
		}
	}

	if len(in.Paths) > 0 {
		expanded, err := parser.ExpandGlobs(in.Paths)
		if err != nil {
			return nil, nil, fmt.Errorf("expanding profile paths: %w", err)
		}
		candidates = append(candidates, expanded...)
	}

	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		if seen[path] {
			continue
		}
		seen[path] = true

		if c.cfg.Excluded(path) {
			c.logger.Debug("skipping excluded profile", "path", path)
			skipped = append(skipped, path)
			continue
		}
		paths = append(paths, path)
	}

	return paths, skipped, nil
}

// Run discovers and parses every profile. The first fatal error aborts the
// batch and no partial result is returned.
func (c *Converter) Run(ctx context.Context, in Inputs) (*Batch, error) {
	batch := &Batch{
		Profiles:  []*parser.Profile{},
		StartTime: time.Now(),
	}

	paths, skipped, err := c.Discover(in)
	if err != nil {
		return nil, err
	}
	batch.Skipped = skipped

	results, err := c.parseAll(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("converting profiles: %w", err)
	}
	for i, result := range results {
		batch.Profiles = append(batch.Profiles, result.Profile)
		batch.Diagnostics = append(batch.Diagnostics, result.Diagnostics...)
		batch.Sources = append(batch.Sources, paths[i])
	}

	batch.EndTime = time.Now()
	c.logger.Info("conversion finished",
		"profiles", len(batch.Profiles),
		"skipped", len(batch.Skipped),
		"diagnostics", len(batch.Diagnostics),
		"duration", batch.EndTime.Sub(batch.StartTime))

	return batch, nil
}

// parseAll parses paths with up to c.jobs workers. results[i] belongs to paths[i].
// The first error cancels the remaining work.
func (c *Converter) parseAll(ctx context.Context, paths []string) ([]*parser.Result, error) {
	results := make([]*parser.Result, len(paths))

	if c.jobs <= 1 {
		for i, path := range paths {
			result, err := c.parser.ParseFile(ctx, path)
			if err != nil {
				return nil, err
			}
			results[i] = result
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			result, err := c.parser.ParseFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParseOne parses a single profile file.
func (c *Converter) ParseOne(ctx context.Context, path string) (*parser.Result, error) {
	return c.parser.ParseFile(ctx, path)
}
