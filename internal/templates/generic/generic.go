// Package generic is the catch-all template for layouts no carrier
// template claims.
package generic

import (
	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
	"booking_parser/internal/registry"
)

// Template runs the layout-agnostic profile.
type Template struct {
	engine *extractor.Engine
}

func init() {
	registry.RegisterCatchAll(New())
}

// New creates the template.
func New(opts ...extractor.Option) *Template {
	return &Template{engine: extractor.New(extractor.GenericProfile(), opts...)}
}

func (t *Template) Name() string                   { return "generic" }
func (t *Template) Priority() int                  { return 1000 }
func (t *Template) QuickCheck(lines []string) bool { return len(lines) > 0 }

// Configure rebuilds the engine with opts. Not safe for use concurrent with
// Extract.
func (t *Template) Configure(opts ...extractor.Option) {
	t.engine = extractor.New(extractor.GenericProfile(), opts...)
}

func (t *Template) Extract(doc *document.Document) *extractor.Result {
	return t.engine.Extract(doc)
}

func (t *Template) ClassifyWithTrace(lines []string) *registry.TraceResult {
	ok := t.QuickCheck(lines)
	reason := ""
	if !ok {
		reason = "no lines"
	}
	return &registry.TraceResult{
		TemplateName: t.Name(),
		QuickCheck:   &registry.QuickCheck{Passed: ok, Reason: reason},
		Matched:      ok,
	}
}
