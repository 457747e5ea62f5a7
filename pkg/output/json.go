package output

import (
	"context"
	"encoding/json"
	"io"
	"strings"
)

// Indent is the indentation of the written JSON document.
var Indent = strings.Repeat(" ", 4)

// JSONFormatter formats reports as the profiles JSON document.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report's profiles as a pretty-printed JSON array.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", Indent)
	encoder.SetEscapeHTML(false)

	if f.opts.Quiet {
		// Quiet mode: just summary
		return encoder.Encode(report.Summary)
	}

	return encoder.Encode(report.Profiles)
}
