package parser

import (
	"fmt"
	"strings"
)

// ParseHeader reads the instance and class names from the two lines that follow
// the header marker. Only the first of a comma-separated list of class names is kept.
func ParseHeader(lines []string) (instance, className string, err error) {
	idx := FindMarker(lines, HeaderMarker, 0)
	if idx < 0 {
		return "", "", fmt.Errorf("%w: no %q marker", ErrMissingHeader, HeaderMarker)
	}
	if idx+2 >= len(lines) {
		return "", "", fmt.Errorf("%w: header at line %d is truncated", ErrMissingHeader, idx+1)
	}

	instance = headerValue(lines[idx+1])
	className, _, _ = strings.Cut(headerValue(lines[idx+2]), ",")
	return instance, strings.TrimSpace(className), nil
}

func headerValue(line string) string {
	eq := strings.Index(line, "=")
	return strings.TrimSpace(line[eq+1:])
}
