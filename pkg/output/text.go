package output

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ccollicutt/profjson/pkg/parser"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "profjson: %d profiles converted, %d magnitudes, %d limit diagnostics\n",
		report.Summary.ProfilesConverted,
		report.Summary.Magnitudes,
		len(report.Diagnostics))
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Profile Conversion Report ===")
	fmt.Fprintln(w)

	for _, p := range report.Profiles {
		f.formatProfile(p, w)
	}

	if len(report.Diagnostics) > 0 {
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range report.Diagnostics {
			fmt.Fprintf(w, "  - [%s] %s: %s\n", d.Kind, d.Magnitude, d.Message)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	_, err := fmt.Fprintf(w, "Summary: %d profiles, %d magnitudes (%d arrays), %d limits broadcast, %d left unmodified\n",
		report.Summary.ProfilesConverted,
		report.Summary.Magnitudes,
		report.Summary.ArrayMagnitudes,
		report.Summary.LimitsBroadcast,
		report.Summary.LimitsUnmodified)
	if err != nil {
		return err
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Skipped: %d\n", report.Summary.ProfilesSkipped)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatProfile(p *parser.Profile, w io.Writer) {
	fmt.Fprintf(w, "[%s] %s\n", p.ClassName, p.Instance)
	if p.Source != "" && f.opts.Verbose {
		fmt.Fprintf(w, "  Source: %s\n", p.Source)
	}

	if len(p.Monitors) == 0 {
		fmt.Fprintln(w, "  No magnitudes")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Magnitudes: %d\n", len(p.Monitors))
	for _, name := range sortedNames(p.Monitors) {
		f.formatMagnitude(name, p.Monitors[name], w)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatMagnitude(name string, m parser.Magnitude, w io.Writer) {
	typ := m[parser.KeyType]
	if typ == "" {
		typ = "?"
	}
	switch {
	case m.Has(parser.KeyHeight):
		typ = fmt.Sprintf("%s[%s,%s]", typ, m[parser.KeyHeight], m[parser.KeyWidth])
	case m.Has(parser.KeyWidth):
		typ = fmt.Sprintf("%s[%s]", typ, m[parser.KeyWidth])
	}

	fmt.Fprintf(w, "  - %s (%s)", name, typ)
	if units := m[parser.KeyUnits]; units != "" {
		fmt.Fprintf(w, " %s", units)
	}
	fmt.Fprintln(w)

	if !f.opts.Verbose {
		return
	}
	if d := m[parser.KeyDescription]; d != "" {
		fmt.Fprintf(w, "    %s\n", d)
	}
	if m.Has(parser.KeyLowerLimit) || m.Has(parser.KeyUpperLimit) {
		fmt.Fprintf(w, "    Limits: %s .. %s\n", m[parser.KeyLowerLimit], m[parser.KeyUpperLimit])
	}
	if m.Has(parser.KeyDefaultSamplingPeriod) || m.Has(parser.KeyDefaultStoragePeriod) {
		fmt.Fprintf(w, "    Sampling: %s, storage: %s\n",
			m[parser.KeyDefaultSamplingPeriod], m[parser.KeyDefaultStoragePeriod])
	}
}

func sortedNames(monitors map[string]parser.Magnitude) []string {
	names := make([]string, 0, len(monitors))
	for name := range monitors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
