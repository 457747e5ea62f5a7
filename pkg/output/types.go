// Package output provides formatting and output generation for converted profiles.
package output

import (
	"time"

	"github.com/ccollicutt/profjson/pkg/convert"
	"github.com/ccollicutt/profjson/pkg/parser"
)

// Report is the complete conversion output.
type Report struct {
	// Profiles is the converted document, one entry per profile file.
	Profiles []*parser.Profile

	// Diagnostics lists the limit problems the parser recovered from.
	Diagnostics []parser.Diagnostic

	// Summary provides aggregate statistics.
	Summary Summary

	// Metadata provides context about the run.
	Metadata Metadata
}

// Summary provides aggregate statistics.
type Summary struct {
	ProfilesConverted int `json:"profiles_converted"`
	ProfilesSkipped   int `json:"profiles_skipped"`
	Magnitudes        int `json:"magnitudes"`
	ArrayMagnitudes   int `json:"array_magnitudes"`
	LimitsBroadcast   int `json:"limits_broadcast"`
	LimitsUnmodified  int `json:"limits_unmodified"`
}

// Metadata provides context about the conversion run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string

	// Sources lists the profile files that were converted.
	Sources []string

	// Skipped lists the profile files left out by exclude patterns.
	Skipped []string

	// ConvertedAt is when the conversion finished.
	ConvertedAt time.Time

	// Duration is how long the conversion took.
	Duration time.Duration
}

// NewReport creates a Report from a converted batch.
func NewReport(batch *convert.Batch, configFile string) *Report {
	profiles := batch.Profiles
	if profiles == nil {
		profiles = []*parser.Profile{}
	}

	report := &Report{
		Profiles:    profiles,
		Diagnostics: batch.Diagnostics,
		Metadata: Metadata{
			ConfigFile:  configFile,
			Sources:     batch.Sources,
			Skipped:     batch.Skipped,
			ConvertedAt: batch.EndTime,
			Duration:    batch.EndTime.Sub(batch.StartTime),
		},
		Summary: Summary{
			ProfilesConverted: len(profiles),
			ProfilesSkipped:   len(batch.Skipped),
		},
	}

	for _, p := range profiles {
		report.Summary.Magnitudes += len(p.Monitors)
		for _, m := range p.Monitors {
			if m.Has(parser.KeyWidth) {
				report.Summary.ArrayMagnitudes++
			}
		}
	}

	for _, d := range batch.Diagnostics {
		switch d.Kind {
		case parser.DiagnosticLimitBroadcast:
			report.Summary.LimitsBroadcast++
		case parser.DiagnosticLimitUnmodified:
			report.Summary.LimitsUnmodified++
		}
	}

	return report
}

// NewSingleReport wraps the result of parsing one profile.
func NewSingleReport(result *parser.Result) *Report {
	now := time.Now()
	batch := &convert.Batch{
		Profiles:    []*parser.Profile{result.Profile},
		Diagnostics: result.Diagnostics,
		Sources:     []string{result.Profile.Source},
		StartTime:   now,
		EndTime:     now,
	}
	return NewReport(batch, "")
}

// HasDiagnostics returns true if the parser recovered from any limit problem.
func (r *Report) HasDiagnostics() bool {
	return len(r.Diagnostics) > 0
}
