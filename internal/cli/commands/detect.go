package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/detector"
	"github.com/ccollicutt/profjson/pkg/parser"
	"github.com/ccollicutt/profjson/pkg/transform"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <profile...>",
		Short: "Suggest transforms for profile values",
		Long: `Inspect profiles for values that need a transform before they can be
converted cleanly.

Profiles are parsed without transforms and the raw values of every magnitude
are tested against known shapes:
  - Periods with a time unit ("10s") or a spaced unit ("10 s")
  - Scalar limits with a spaced unit ("100 V")
  - Limit lists containing spaces ("[1, 2, 3]")

Reports each finding with its confidence and prints the transform
configuration that would clean the values up.

Optionally generates a starter config file with --write-config.

Example:
  profjson detect devices/motor1/profiles/motor1
  profjson detect --sample 20 devices/*/profiles/*
  profjson detect -w profjson.yaml devices/**/profiles/*`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of magnitudes to sample per profile")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show every finding, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	paths, err := parser.ExpandGlobs(args)
	if err != nil {
		return err
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	result, err := d.DetectFromFiles(ctx, paths)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, result, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, paths, opts)
	default:
		return outputDetectText(w, result, paths, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, paths []string, opts *DetectOptions) error {
	_, _ = fmt.Fprintln(w, "=== Transform Detection ===")
	_, _ = fmt.Fprintln(w)
	if len(paths) == 1 {
		_, _ = fmt.Fprintf(w, "File: %s\n", paths[0])
	} else {
		_, _ = fmt.Fprintf(w, "Files: %d\n", len(paths))
	}
	_, _ = fmt.Fprintf(w, "Magnitudes sampled: %d\n", result.SampledMagnitudes)
	_, _ = fmt.Fprintln(w)

	if !result.HasMatch() {
		_, _ = fmt.Fprintln(w, "No values need a transform.")
		return nil
	}

	best := result.BestMatch()
	_, _ = fmt.Fprintf(w, "Detected: %s in %s\n", best.Format.Name, best.Property)
	_, _ = fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d values matched)\n",
		best.Confidence*100, best.MatchCount, best.Total)
	_, _ = fmt.Fprintf(w, "Sample value:\n  %s = %s (%s)\n", best.Property, best.SampleValue, best.SampleFrom)
	_, _ = fmt.Fprintln(w)

	// YAML snippet
	_, _ = fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, transformSnippet(result.Suggestions()))
	_, _ = fmt.Fprintln(w)

	// Show the rest if requested
	if opts.ShowAll && len(result.Matches) > 1 {
		_, _ = fmt.Fprintln(w, "--- Other findings ---")
		for i, m := range result.Matches[1:] {
			_, _ = fmt.Fprintf(w, "%d. %s in %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Property, m.Confidence*100)
			_, _ = fmt.Fprintf(w, "   sample: %s (%s)\n", m.SampleValue, m.SampleFrom)
			_, _ = fmt.Fprintf(w, "   transforms: %s\n", strings.Join(m.Format.Transforms, ", "))
		}
		_, _ = fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a finding in JSON output.
type JSONMatch struct {
	Name        string   `json:"name"`
	Property    string   `json:"property"`
	Pattern     string   `json:"pattern"`
	Transforms  []string `json:"transforms"`
	Confidence  float64  `json:"confidence"`
	MatchCount  int      `json:"match_count"`
	Total       int      `json:"total"`
	SampleValue string   `json:"sample_value"`
	SampleFrom  string   `json:"sample_from"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	Files             []string              `json:"files"`
	Matches           []JSONMatch           `json:"matches"`
	Suggestions       []detector.Suggestion `json:"suggestions"`
	SampledProfiles   int                   `json:"sampled_profiles"`
	SampledMagnitudes int                   `json:"sampled_magnitudes"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, paths []string, opts *DetectOptions) error {
	out := JSONOutput{
		Files:             paths,
		SampledProfiles:   result.SampledProfiles,
		SampledMagnitudes: result.SampledMagnitudes,
		Matches:           make([]JSONMatch, 0),
		Suggestions:       make([]detector.Suggestion, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:        m.Format.Name,
			Property:    m.Property,
			Pattern:     m.Format.PatternStr,
			Transforms:  m.Format.Transforms,
			Confidence:  m.Confidence,
			MatchCount:  m.MatchCount,
			Total:       m.Total,
			SampleValue: m.SampleValue,
			SampleFrom:  m.SampleFrom,
		})
	}
	out.Suggestions = append(out.Suggestions, result.Suggestions()...)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file from the suggestions.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	// Need something to configure
	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no values need a transform")
	}

	content := generateStarterConfig(result)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// transformSnippet renders one YAML list per transform, in application order.
func transformSnippet(suggestions []detector.Suggestion) string {
	props := make(map[string][]string, len(suggestions))
	for _, s := range suggestions {
		props[s.Transform] = s.Properties
	}

	var b strings.Builder
	for _, step := range transform.Table {
		list := props[step.Name]
		if len(list) == 0 {
			fmt.Fprintf(&b, "%s: []\n", step.Name)
			continue
		}
		fmt.Fprintf(&b, "%s:\n", step.Name)
		for _, p := range list {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
	}
	return b.String()
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(result *detector.DetectionResult) string {
	best := result.BestMatch()

	return fmt.Sprintf(`# profjson configuration
# Generated by: profjson detect
# Profiles inspected: %d
# Best finding: %s in %s (%.0f%% confidence)

%s
# Set to true to let "all" in a transform list match every property.
match_all: false

# Profiles whose path matches one of these patterns are not converted.
exclude:
%s
# Receive the converted document after every run:
# webhooks:
#   - name: collector
#     url: https://collector.example.com/profiles
#     token: ${PROFJSON_WEBHOOK_TOKEN}
#     trigger: always
#     timeout: 10s
`, result.SampledProfiles,
		best.Format.Name, best.Property, best.Confidence*100,
		transformSnippet(result.Suggestions()),
		excludeSnippet(config.DefaultExcludes()))
}

func excludeSnippet(patterns []string) string {
	var b strings.Builder
	for _, p := range patterns {
		fmt.Fprintf(&b, "  - %q\n", p)
	}
	return b.String()
}
