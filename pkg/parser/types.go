// Package parser reads device profile dumps and turns them into structured profiles.
package parser

// Structural markers located by substring search.
const (
	HeaderMarker    = "[ Header"
	MagnitudeMarker = "[ Magnitude "
)

// Magnitude property keys.
const (
	KeyDescription           = "description"
	KeyUnits                 = "units"
	KeyType                  = "type"
	KeyUpperLimit            = "upper_limit"
	KeyLowerLimit            = "lower_limit"
	KeyDefaultSamplingPeriod = "default_sampling_period"
	KeyDefaultStoragePeriod  = "default_storage_period"
	KeyWidth                 = "width"
	KeyHeight                = "height"
)

// Profile is one parsed device profile.
type Profile struct {
	Instance  string               `json:"instance"`
	ClassName string               `json:"className"`
	Monitors  map[string]Magnitude `json:"monitors"`

	// Source is the file the profile was read from. Empty for in-memory input.
	Source string `json:"-"`
}

// Magnitude holds the properties found for one monitored value.
// Keys that were not present in the profile are absent from the map.
type Magnitude map[string]string

// Has reports whether key was captured.
func (m Magnitude) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// DiagnosticKind classifies a recovered parse problem.
type DiagnosticKind string

const (
	// DiagnosticLimitBroadcast means a limit did not match the declared shape
	// and its first value was repeated to fill it.
	DiagnosticLimitBroadcast DiagnosticKind = "limit-broadcast"
	// DiagnosticLimitUnmodified means the limits could not be normalized and were left as found.
	DiagnosticLimitUnmodified DiagnosticKind = "limit-unmodified"
)

// Diagnostic records something the parser recovered from.
type Diagnostic struct {
	Source    string         `json:"source,omitempty"`
	Magnitude string         `json:"magnitude"`
	Kind      DiagnosticKind `json:"kind"`
	Message   string         `json:"message"`
}

// Result is the output of parsing one profile.
type Result struct {
	Profile     *Profile
	Diagnostics []Diagnostic
}
