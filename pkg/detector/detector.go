// Package detector finds profile values that the configurable transforms would
// clean up and suggests a transform configuration for them.
package detector

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/ccollicutt/profjson/pkg/parser"
	"github.com/ccollicutt/profjson/pkg/transform"
)

// DetectionResult holds the result of analyzing one or more profiles.
type DetectionResult struct {
	Matches           []FormatMatch // Formats that matched, sorted by confidence descending
	SampledProfiles   int           // Number of profiles inspected
	SampledMagnitudes int           // Number of magnitudes inspected
}

// FormatMatch is a format found in the values of one property.
type FormatMatch struct {
	Format      *ValueFormat
	Property    string
	Confidence  float64 // 0.0 to 1.0 (share of the property's values that matched)
	MatchCount  int     // Number of values that matched
	Total       int     // Number of values of the property that were inspected
	SampleValue string  // Example value that matched
	SampleFrom  string  // Magnitude the sample was taken from
}

// Detector analyzes profiles for values that need transforms.
type Detector struct {
	formats    []*ValueFormat
	sampleSize int
	parser     *parser.Parser
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of magnitudes sampled per profile (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
// Profiles are parsed without transforms so the raw values are inspected.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 100,
		parser:     parser.New(nil, parser.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile parses a profile file and returns detected formats.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	return d.DetectFromFiles(ctx, []string{path})
}

// DetectFromFiles parses every file and returns the formats detected across all of them.
func (d *Detector) DetectFromFiles(ctx context.Context, paths []string) (*DetectionResult, error) {
	profiles := make([]*parser.Profile, 0, len(paths))
	for _, path := range paths {
		result, err := d.parser.ParseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, result.Profile)
	}
	return d.DetectFromProfiles(profiles), nil
}

// DetectFromProfiles analyzes already parsed profiles.
// The profiles should have been parsed without transforms.
func (d *Detector) DetectFromProfiles(profiles []*parser.Profile) *DetectionResult {
	result := &DetectionResult{
		SampledProfiles: len(profiles),
	}

	type matchStats struct {
		format      *ValueFormat
		property    string
		matchCount  int
		sampleValue string
		sampleFrom  string
	}

	stats := make(map[string]*matchStats)
	var order []string
	totals := make(map[string]int)

	for _, p := range profiles {
		names := make([]string, 0, len(p.Monitors))
		for name := range p.Monitors {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > d.sampleSize {
			names = names[:d.sampleSize]
		}

		for _, name := range names {
			result.SampledMagnitudes++
			for property, value := range p.Monitors[name] {
				totals[property]++

				// First matching format wins so a value is only counted once
				for _, format := range d.formats {
					if !format.AppliesTo(property) || !format.Pattern.MatchString(value) {
						continue
					}

					key := format.Name + "\x00" + property
					if stats[key] == nil {
						stats[key] = &matchStats{
							format:      format,
							property:    property,
							sampleValue: value,
							sampleFrom:  name,
						}
						order = append(order, key)
					}
					stats[key].matchCount++
					break
				}
			}
		}
	}

	for _, key := range order {
		s := stats[key]
		result.Matches = append(result.Matches, FormatMatch{
			Format:      s.format,
			Property:    s.property,
			Confidence:  float64(s.matchCount) / float64(totals[s.property]),
			MatchCount:  s.matchCount,
			Total:       totals[s.property],
			SampleValue: s.sampleValue,
			SampleFrom:  s.sampleFrom,
		})
	}

	// Sort by confidence descending, then by match count, then by property name
	sort.SliceStable(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.MatchCount != b.MatchCount {
			return a.MatchCount > b.MatchCount
		}
		return a.Property < b.Property
	})

	return result
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// Suggestions returns, for every transform in application order, the sorted
// properties it should be enabled for. Transforms with nothing to do are omitted.
func (r *DetectionResult) Suggestions() []Suggestion {
	props := make(map[string]map[string]bool)
	for _, m := range r.Matches {
		for _, t := range m.Format.Transforms {
			if props[t] == nil {
				props[t] = make(map[string]bool)
			}
			props[t][m.Property] = true
		}
	}

	var out []Suggestion
	for _, step := range transform.Table {
		set := props[step.Name]
		if len(set) == 0 {
			continue
		}
		s := Suggestion{Transform: step.Name}
		for p := range set {
			s.Properties = append(s.Properties, p)
		}
		sort.Strings(s.Properties)
		out = append(out, s)
	}
	return out
}

// Suggestion lists the properties a transform should be enabled for.
type Suggestion struct {
	Transform  string   `json:"transform" yaml:"transform"`
	Properties []string `json:"properties" yaml:"properties"`
}

// Missing returns the suggested transform/property pairs that m does not enable yet.
func Missing(suggestions []Suggestion, m transform.Matcher) []Suggestion {
	var out []Suggestion
	for _, s := range suggestions {
		var props []string
		for _, p := range s.Properties {
			if m == nil || !m.Applies(s.Transform, p) {
				props = append(props, p)
			}
		}
		if len(props) > 0 {
			out = append(out, Suggestion{Transform: s.Transform, Properties: props})
		}
	}
	return out
}
