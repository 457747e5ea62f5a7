package parser

import "strings"

// specialCharacters are dropped from every line before values are extracted.
var specialCharacters = strings.NewReplacer("\t", "", `\`, "", "\n", "")

// FindMarker returns the index of the first line at or after from that contains marker.
// Returns -1 if there is none.
func FindMarker(lines []string, marker string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(lines); i++ {
		if strings.Contains(lines[i], marker) {
			return i
		}
	}
	return -1
}

// NormalizeLine removes tabs, backslashes and newlines and trims surrounding whitespace.
func NormalizeLine(line string) string {
	return strings.TrimSpace(specialCharacters.Replace(line))
}

// ReadLogicalLine normalizes lines[idx] and, while the raw line ends with a
// backslash, joins the following lines to it with a single space.
// It returns the index of the last line consumed and the joined value.
func ReadLogicalLine(lines []string, idx int) (int, string) {
	var b strings.Builder
	b.WriteString(NormalizeLine(lines[idx]))
	for continued(lines[idx]) && idx+1 < len(lines) {
		idx++
		b.WriteByte(' ')
		b.WriteString(NormalizeLine(lines[idx]))
	}
	return idx, strings.TrimSpace(b.String())
}

func continued(raw string) bool {
	return strings.HasSuffix(strings.TrimSuffix(raw, "\n"), `\`)
}

// slice returns s[i:j] with out-of-range and negative bounds handled the way
// index arithmetic on a missing separator expects: negative bounds count from
// the end, bounds are clamped, and an inverted range is empty.
func slice(s string, i, j int) string {
	n := len(s)
	if i < 0 {
		i += n
	}
	if j < 0 {
		j += n
	}
	i = min(max(i, 0), n)
	j = min(max(j, 0), n)
	if j <= i {
		return ""
	}
	return s[i:j]
}
