package detector

import (
	"regexp"

	"github.com/ccollicutt/profjson/pkg/config"
	"github.com/ccollicutt/profjson/pkg/parser"
)

// ValueFormat is a value shape that one or more transforms clean up.
type ValueFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern string for reports
	Transforms []string       // Transforms that turn the value into a plain number or literal
	Properties []string       // Properties the format is looked for in
	Examples   []string       // Example values
}

var periodProperties = []string{
	parser.KeyDefaultSamplingPeriod,
	parser.KeyDefaultStoragePeriod,
}

var limitProperties = []string{
	parser.KeyUpperLimit,
	parser.KeyLowerLimit,
}

// DefaultFormats returns the built-in value formats to detect.
// Formats are ordered roughly by specificity (more specific patterns first).
func DefaultFormats() []*ValueFormat {
	formats := []*ValueFormat{
		// "10 s": the unit goes first, then the space left in front of it
		{
			Name:       "Period with spaced time unit",
			PatternStr: `^[+-]?(\d+\.?\d*|\.\d+)\s+[A-Za-zµ]$`,
			Transforms: []string{config.TransformRemoveTimeUnit, config.TransformRemoveWhiteSpaces},
			Properties: periodProperties,
			Examples:   []string{"10 s", "0.5 m"},
		},
		// "10s"
		{
			Name:       "Period with time unit",
			PatternStr: `^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?[A-Za-zµ]$`,
			Transforms: []string{config.TransformRemoveTimeUnit},
			Properties: periodProperties,
			Examples:   []string{"10s", "5m", "1e3s"},
		},
		// "100 V"
		{
			Name:       "Scalar limit with spaced unit",
			PatternStr: `^[+-]?(\d+\.?\d*|\.\d+)\s+[A-Za-zµ]$`,
			Transforms: []string{config.TransformRemoveTimeUnit, config.TransformRemoveWhiteSpaces},
			Properties: limitProperties,
			Examples:   []string{"100 V"},
		},
		// "[1, 2, 3]" on a magnitude that is not an array
		{
			Name:       "Spaced limit list",
			PatternStr: `^\[[^\]]*\s[^\]]*\]$`,
			Transforms: []string{config.TransformRemoveWhiteSpaces},
			Properties: limitProperties,
			Examples:   []string{"[1, 2, 3]", "[0 ,1; 2, 3]"},
		},
	}

	// Compile all patterns
	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}

// AppliesTo reports whether the format is looked for in property.
func (f *ValueFormat) AppliesTo(property string) bool {
	for _, p := range f.Properties {
		if p == property {
			return true
		}
	}
	return false
}
