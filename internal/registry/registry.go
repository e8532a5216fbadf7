// Package registry provides a template registry for dispatching booking
// confirmations to the extractor profile that understands their layout.
package registry

import (
	"sort"
	"sync"

	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
)

// Template is implemented by each document layout.
type Template interface {
	// Name returns the template's unique identifier.
	Name() string

	// QuickCheck reports whether the document MIGHT use this layout. It
	// should only look for marker phrases, never run the full extraction.
	QuickCheck(lines []string) bool

	// Priority determines order when several templates match.
	// Lower number = checked first.
	Priority() int

	// Extract runs the template's extraction. It never returns nil.
	Extract(doc *document.Document) *extractor.Result
}

// Registry holds all registered templates.
type Registry struct {
	mu sync.RWMutex

	// templates are checked in Priority order
	templates []Template

	// catchAll holds templates that run only when nothing else matched
	catchAll []Template

	// sorted tracks whether templates have been sorted
	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a template to the default registry.
// Called during init() in each template package.
func Register(t Template) {
	defaultRegistry.Register(t)
}

// RegisterCatchAll adds a catch-all template that runs when nothing else
// matches.
func RegisterCatchAll(t Template) {
	defaultRegistry.RegisterCatchAll(t)
}

// Register adds a template to the registry.
func (r *Registry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, t)
	r.sorted = false
}

// RegisterCatchAll adds a catch-all template.
func (r *Registry) RegisterCatchAll(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catchAll = append(r.catchAll, t)
	r.sorted = false
}

// Sort sorts all templates by priority. Call before dispatching.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}

	sort.SliceStable(r.templates, func(i, j int) bool {
		return r.templates[i].Priority() < r.templates[j].Priority()
	})
	sort.SliceStable(r.catchAll, func(i, j int) bool {
		return r.catchAll[i].Priority() < r.catchAll[j].Priority()
	})

	r.sorted = true
}

// Classify returns the template that would handle lines: the first whose
// QuickCheck passes, else the first catch-all.
// Note: Sort() should be called before Classify() for priority order.
func (r *Registry) Classify(lines []string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.templates {
		if t.QuickCheck(lines) {
			return t, true
		}
	}
	if len(r.catchAll) > 0 {
		return r.catchAll[0], true
	}
	return nil, false
}

// Matching returns every non-catch-all template whose QuickCheck passes.
func (r *Registry) Matching(lines []string) []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Template
	for _, t := range r.templates {
		if t.QuickCheck(lines) {
			out = append(out, t)
		}
	}
	return out
}

// Dispatch routes a document to its template and returns the extraction
// result, or nil when no template is registered at all. A template named on
// the document skips classification. The chosen template name is recorded
// on the document.
func (r *Registry) Dispatch(doc *document.Document) *extractor.Result {
	t, ok := r.Lookup(doc.Template)
	if !ok {
		t, ok = r.Classify(doc.Lines)
	}
	if !ok {
		return nil
	}
	doc.Template = t.Name()
	return t.Extract(doc)
}

// Lookup returns the template registered under name.
func (r *Registry) Lookup(name string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.templates {
		if t.Name() == name {
			return t, true
		}
	}
	for _, t := range r.catchAll {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// TemplateCount returns the total number of unique registered templates.
func (r *Registry) TemplateCount() int {
	return len(r.AllTemplates())
}

// AllTemplates returns all registered templates, catch-all last.
// This is useful for debugging and listing available templates.
func (r *Registry) AllTemplates() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Template

	for _, t := range r.templates {
		if !seen[t.Name()] {
			seen[t.Name()] = true
			result = append(result, t)
		}
	}
	for _, t := range r.catchAll {
		if !seen[t.Name()] {
			seen[t.Name()] = true
			result = append(result, t)
		}
	}

	return result
}

// Trace runs the traceable templates' classifiers over lines.
func (r *Registry) Trace(lines []string) []*TraceResult {
	var out []*TraceResult
	for _, t := range r.AllTemplates() {
		if tr, ok := t.(Traceable); ok {
			out = append(out, tr.ClassifyWithTrace(lines))
		}
	}
	return out
}

// Configurable is implemented by templates whose engine takes options.
type Configurable interface {
	Configure(opts ...extractor.Option)
}

// Configure applies opts to every configurable template. Call it once at
// startup, before dispatching.
func (r *Registry) Configure(opts ...extractor.Option) {
	for _, t := range r.AllTemplates() {
		if c, ok := t.(Configurable); ok {
			c.Configure(opts...)
		}
	}
}
