package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Limit literal separators.
const (
	rowSeparator    = ";"
	columnSeparator = ","
)

var limitBrackets = strings.NewReplacer("[", "", "]", "")

// limitKeys are the properties reshaped to an array magnitude's dimensions.
var limitKeys = []string{KeyUpperLimit, KeyLowerLimit}

// FormatDecimal renders v in canonical decimal form: the shortest text that
// round-trips, integral values keep a ".0" and very large or very small
// magnitudes use exponent notation ("1e-05", "1e+16").
func FormatDecimal(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseDecimal parses a single limit token. Out of range values saturate to
// infinity instead of failing. Hex literals are rejected and '_' is accepted
// only between two digits ("1_000").
func ParseDecimal(token string) (float64, error) {
	text, ok := decimalText(strings.TrimSpace(token))
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedLimit, token)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedLimit, token)
	}
	return v, nil
}

// decimalText drops digit separators from s. It returns false for hex
// literals and for misplaced underscores.
func decimalText(s string) (string, bool) {
	unsigned := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X") {
		return "", false
	}
	if !strings.Contains(s, "_") {
		return s, true
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return strings.ReplaceAll(s, "_", ""), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// CanonicalDecimal re-renders token in canonical form, or returns it unchanged
// when it is not a number.
func CanonicalDecimal(token string) string {
	v, err := ParseDecimal(token)
	if err != nil {
		return token
	}
	return FormatDecimal(v)
}

func stripBrackets(value string) string {
	return strings.TrimSpace(limitBrackets.Replace(value))
}

// CheckLimitFormat reports whether a limit already spells out a width x height array.
// One dimensional limits with more values than width are accepted as they are.
func CheckLimitFormat(value string, width, height int) bool {
	limit := stripBrackets(value)

	if height > 1 {
		rows := strings.Split(limit, rowSeparator)
		if len(rows) < height {
			return false
		}
		for _, row := range rows {
			if len(strings.Split(row, columnSeparator)) < width {
				return false
			}
		}
		return true
	}

	n := len(strings.Split(limit, columnSeparator))
	if n > width {
		return true
	}
	return n == width
}

// BroadcastLimit repeats the first value of a limit into every cell of a
// width x height array.
func BroadcastLimit(value string, width, height int) (string, error) {
	if width < 1 || height < 1 {
		return "", fmt.Errorf("%w: cannot broadcast to %dx%d", ErrMalformedLimit, height, width)
	}

	first, _, _ := strings.Cut(stripBrackets(value), columnSeparator)
	v, err := ParseDecimal(first)
	if err != nil {
		return "", err
	}

	cell := FormatDecimal(v)
	row := strings.TrimSuffix(strings.Repeat(cell+columnSeparator, width), columnSeparator)
	rows := strings.TrimSuffix(strings.Repeat(row+rowSeparator, height), rowSeparator)
	return "[" + rows + "]", nil
}

// NormalizeLimit re-renders every number of a limit literal in canonical form,
// keeping its row and column structure.
func NormalizeLimit(value string) (string, error) {
	limit := stripBrackets(value)

	rows := []string{limit}
	if strings.Contains(limit, rowSeparator) {
		rows = strings.Split(limit, rowSeparator)
	}

	out := make([]string, len(rows))
	for i, row := range rows {
		cells := strings.Split(row, columnSeparator)
		for j, cell := range cells {
			v, err := ParseDecimal(cell)
			if err != nil {
				return "", err
			}
			cells[j] = FormatDecimal(v)
		}
		out[i] = strings.Join(cells, columnSeparator)
	}
	return "[" + strings.Join(out, rowSeparator) + "]", nil
}

// ExpandLimits reshapes the upper and lower limits of an array magnitude to
// its width and height. Limits that already have the right shape are
// normalized; the others are broadcast from their first value.
//
// Either both limits are rewritten or neither is. The keys that had to be
// broadcast are returned so callers can report them.
func ExpandLimits(m Magnitude) ([]string, error) {
	width, err := dimension(m, KeyWidth)
	if err != nil {
		return nil, err
	}
	height := 1
	if m.Has(KeyHeight) {
		if height, err = dimension(m, KeyHeight); err != nil {
			return nil, err
		}
	}

	updated := make(map[string]string, len(limitKeys))
	var broadcast []string
	for _, key := range limitKeys {
		value, ok := m[key]
		if !ok {
			continue
		}

		var expanded string
		if CheckLimitFormat(value, width, height) {
			expanded, err = NormalizeLimit(value)
		} else {
			expanded, err = BroadcastLimit(value, width, height)
			broadcast = append(broadcast, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", key, value, err)
		}
		updated[key] = expanded
	}

	for key, value := range updated {
		m[key] = value
	}
	return broadcast, nil
}

func dimension(m Magnitude, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(m[key]))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrMalformedLimit, key, m[key])
	}
	return n, nil
}
