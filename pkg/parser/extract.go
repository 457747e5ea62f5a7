package parser

import "strings"

// Extracted is the right-hand side of a property line.
type Extracted struct {
	// Value is the text after the first ':' or, without one, after the first '='.
	Value string

	// Variant is the text between '=' and ':' when the line has a ':'.
	// Enum magnitudes declare their variant name there on their limit lines.
	Variant string

	// HasColon reports whether the line used ':' as its delimiter.
	HasColon bool
}

// ExtractValue splits a normalized property line into its value and, for
// colon-delimited lines, the name written between '=' and ':'.
func ExtractValue(line string) Extracted {
	colon := strings.Index(line, ":")
	if colon < 0 {
		eq := strings.Index(line, "=")
		return Extracted{Value: strings.TrimSpace(line[eq+1:])}
	}

	eq := strings.Index(line, "=")
	return Extracted{
		Value:    strings.TrimSpace(line[colon+1:]),
		Variant:  strings.TrimSpace(slice(line, eq+1, colon)),
		HasColon: true,
	}
}

// MagnitudeName returns the text between the first '.' and the first ']' of a marker line.
// "[ Magnitude .Foo.Bar]" yields "Foo.Bar".
func MagnitudeName(line string) string {
	begin := strings.Index(line, ".")
	end := strings.Index(line, "]")
	if end < 0 {
		end = len(line)
	}
	return strings.TrimSpace(slice(line, begin+1, end))
}
