package parser

import "strings"

// IsArrayType reports whether a raw type string declares an array.
func IsArrayType(typ string) bool {
	return strings.Contains(typ, "Array") || strings.Contains(typ, "[")
}

// InferDimensions reads the width and height of an array-typed magnitude from
// its type ("Array[3,4]" is 3 rows of 4, "Array[5]" is one row of 5) and
// rewrites the type to the element type in front of the bracket.
// It returns false and leaves m untouched when the type is not an array.
func InferDimensions(m Magnitude) bool {
	typ, ok := m[KeyType]
	if !ok || !IsArrayType(typ) {
		return false
	}

	open := strings.Index(typ, "[")
	comma := strings.Index(typ, ",")
	end := strings.Index(typ, "]")

	if comma > open && (end < 0 || comma < end) {
		m[KeyHeight] = strings.TrimSpace(slice(typ, open+1, comma))
		m[KeyWidth] = strings.TrimSpace(slice(typ, comma+1, end))
	} else {
		m[KeyWidth] = strings.TrimSpace(slice(typ, open+1, end))
	}
	m[KeyType] = slice(typ, 0, open)
	return true
}
