// Package transform applies the configured string clean-ups to extracted profile values.
package transform

import (
	"strings"
	"unicode/utf8"

	"github.com/ccollicutt/profjson/pkg/config"
)

// Func rewrites a single value.
type Func func(string) string

// Step is a named entry of the transform table.
type Step struct {
	Name string
	Fn   Func
}

// Table lists every known transform in the order they are applied.
var Table = []Step{
	{Name: config.TransformRemoveTimeUnit, Fn: RemoveTimeUnit},
	{Name: config.TransformRemoveWhiteSpaces, Fn: RemoveWhiteSpaces},
	{Name: config.TransformRemoveLineFeed, Fn: RemoveLineFeed},
}

// RemoveTimeUnit drops the last character, the unit letter of values like "10s".
func RemoveTimeUnit(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

// RemoveWhiteSpaces deletes every space.
func RemoveWhiteSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// RemoveLineFeed deletes line continuation backslashes.
func RemoveLineFeed(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}

// Matcher decides whether a transform is enabled for a property.
// *config.Config implements it.
type Matcher interface {
	Applies(transform, property string) bool
}

// Pipeline runs the table against values of the properties a Matcher selects.
type Pipeline struct {
	matcher Matcher
}

// New creates a pipeline. A nil matcher applies nothing.
func New(m Matcher) *Pipeline {
	return &Pipeline{matcher: m}
}

// Apply runs every transform enabled for property, in table order.
func (p *Pipeline) Apply(property, value string) string {
	if p == nil || p.matcher == nil {
		return value
	}
	for _, step := range Table {
		if p.matcher.Applies(step.Name, property) {
			value = step.Fn(value)
		}
	}
	return value
}
