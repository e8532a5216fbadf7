// Package registry provides tracing interfaces for template debugging.
package registry

// TraceResult contains trace information from a template's classification
// of a document.
type TraceResult struct {
	TemplateName string        `json:"template"`
	QuickCheck   *QuickCheck   `json:"quick_check,omitempty"`
	Markers      []MarkerTrace `json:"markers,omitempty"` // Marker phrase lookups.
	Matched      bool          `json:"matched"`
}

// QuickCheck contains the result of a template's quick check.
type QuickCheck struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// MarkerTrace records one marker phrase lookup.
type MarkerTrace struct {
	Marker  string `json:"marker"`
	Hard    bool   `json:"hard"` // Hard markers identify the sender.
	Matched bool   `json:"matched"`
	Line    int    `json:"line,omitempty"` // First matching line (if matched).
}

// Traceable is implemented by templates that support debug tracing.
// This allows the classify command to show why a template did or didn't
// claim a document.
type Traceable interface {
	ClassifyWithTrace(lines []string) *TraceResult
}
