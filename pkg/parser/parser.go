package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ccollicutt/profjson/pkg/transform"
)

// Descriptor names a magnitude property and the function applied to its value
// after the configured transforms.
type Descriptor struct {
	Name string
	Post transform.Func
}

// Descriptors is the order in which properties are searched for inside a
// magnitude block. Each search starts on the line where the previous property
// ended, so the order matters.
var Descriptors = []Descriptor{
	{Name: KeyDescription},
	{Name: KeyUnits},
	{Name: KeyType},
	{Name: KeyUpperLimit},
	{Name: KeyLowerLimit},
	{Name: KeyDefaultSamplingPeriod, Post: CanonicalDecimal},
	{Name: KeyDefaultStoragePeriod, Post: CanonicalDecimal},
}

const enumType = "enum"

// Parser turns profile text into Profiles. It holds no per-profile state and
// may be reused for any number of files.
type Parser struct {
	transforms *transform.Pipeline
	logger     *slog.Logger
}

// Option configures the Parser.
type Option func(*Parser)

// WithLogger sets the logger used for progress and recovered problems.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Parser applying the transforms selected by m.
// A nil matcher applies no transforms.
func New(m transform.Matcher, opts ...Option) *Parser {
	p := &Parser{
		transforms: transform.New(m),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads and parses one profile file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("parsing profile", "path", path)

	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fatal(path, ErrIOFailure, err)
	}
	defer f.Close()

	return p.ParseReader(f, path)
}

// ParseReader parses a profile read from r. source is used in errors and diagnostics.
func (p *Parser) ParseReader(r io.Reader, source string) (*Result, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, fatal(source, ErrIOFailure, err)
	}
	return p.Parse(lines, source)
}

// Parse builds a Profile from the lines of one profile.
func (p *Parser) Parse(lines []string, source string) (*Result, error) {
	instance, className, err := ParseHeader(lines)
	if err != nil {
		return nil, &ProfileError{Class: ClassFatal, Path: source, Err: err}
	}

	monitors, diags := p.parseMagnitudes(lines, source)

	p.logger.Debug("parsed profile",
		"path", source,
		"instance", instance,
		"class", className,
		"magnitudes", len(monitors))

	return &Result{
		Profile: &Profile{
			Instance:  instance,
			ClassName: className,
			Monitors:  monitors,
			Source:    source,
		},
		Diagnostics: diags,
	}, nil
}

func (p *Parser) parseMagnitudes(lines []string, source string) (map[string]Magnitude, []Diagnostic) {
	monitors := make(map[string]Magnitude)
	var diags []Diagnostic

	idx := FindMarker(lines, MagnitudeMarker, 0)
	for idx >= 0 {
		end := FindMarker(lines, MagnitudeMarker, idx+1)
		if end < 0 {
			end = len(lines)
		}

		name := MagnitudeName(lines[idx])
		m, last, variant := p.parseBlock(lines, idx, end)

		if m.Has(KeyType) {
			if InferDimensions(m) {
				diags = append(diags, p.expandLimits(source, name, m)...)
			}
			if m[KeyType] == enumType {
				m[KeyType] = enumType + "_" + variant
			}
		}

		monitors[name] = m
		idx = FindMarker(lines, MagnitudeMarker, max(last, idx+1))
	}

	return monitors, diags
}

// parseBlock extracts the descriptor properties of the magnitude whose marker
// is at lines[start]; hits at or past end belong to the next block.
// It returns the magnitude, the last line consumed and the enum variant named
// on the limit lines.
func (p *Parser) parseBlock(lines []string, start, end int) (Magnitude, int, string) {
	m := make(Magnitude)
	cursor := start
	variant := ""

	for _, d := range Descriptors {
		at := FindMarker(lines, d.Name, cursor)
		if at < 0 || at >= end {
			continue
		}

		var line string
		cursor, line = ReadLogicalLine(lines, at)

		ex := ExtractValue(line)
		if ex.HasColon && (d.Name == KeyUpperLimit || d.Name == KeyLowerLimit) {
			variant = ex.Variant
		}

		value := p.transforms.Apply(d.Name, ex.Value)
		if d.Post != nil {
			value = d.Post(value)
		}
		m[d.Name] = value
	}

	return m, cursor, variant
}

func (p *Parser) expandLimits(source, name string, m Magnitude) []Diagnostic {
	broadcast, err := ExpandLimits(m)
	if err != nil {
		p.logger.Warn("error checking limits, leaving them unmodified",
			"path", source,
			"magnitude", name,
			"error", err)
		pe := &ProfileError{Class: ClassRecoverable, Path: source, Magnitude: name, Err: err}
		return []Diagnostic{{
			Source:    source,
			Magnitude: name,
			Kind:      DiagnosticLimitUnmodified,
			Message:   pe.Error(),
		}}
	}

	diags := make([]Diagnostic, 0, len(broadcast))
	for _, key := range broadcast {
		p.logger.Debug("broadcast limit to array shape",
			"path", source,
			"magnitude", name,
			"limit", key,
			"value", m[key])
		diags = append(diags, Diagnostic{
			Source:    source,
			Magnitude: name,
			Kind:      DiagnosticLimitBroadcast,
			Message:   fmt.Sprintf("%s did not match %s, broadcast to %s", key, shape(m), m[key]),
		})
	}
	return diags
}

func shape(m Magnitude) string {
	if m.Has(KeyHeight) {
		return m[KeyHeight] + "x" + m[KeyWidth]
	}
	return "1x" + m[KeyWidth]
}

// ReadLines splits r into lines without their line terminators.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max line size

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return lines, nil
}
