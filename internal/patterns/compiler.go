// Package patterns provides shared regex patterns and helper functions for
// booking confirmation extraction.
// This file contains the grok-style pattern compiler.

package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

// Format represents a line shape with named capture groups.
type Format struct {
	Name     string         // Format name for identification
	Pattern  string         // Pattern with {PLACEHOLDER} syntax
	Compiled *regexp.Regexp // Compiled regex (populated by Compile)
}

// Compiler manages pattern compilation and matching for an ordered set of
// formats. Order matters: earlier formats win in Parse.
type Compiler struct {
	basePatterns map[string]string
	formats      []Format
}

// NewCompiler creates a new pattern compiler with the given formats.
// Local patterns override the global BasePatterns.
func NewCompiler(formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		basePatterns: make(map[string]string, len(BasePatterns)+len(localPatterns)),
		formats:      make([]Format, len(formats)),
	}
	for k, v := range BasePatterns {
		c.basePatterns[k] = v
	}
	for k, v := range localPatterns {
		c.basePatterns[k] = v
	}
	copy(c.formats, formats)
	return c
}

// MustCompile is Compile for package-level compilers; it panics on error.
func MustCompile(formats []Format, localPatterns map[string]string) *Compiler {
	c := NewCompiler(formats, localPatterns)
	if err := c.Compile(); err != nil {
		panic(err)
	}
	return c
}

// Compile expands all {PLACEHOLDER} references and compiles regexes.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		expanded := c.expand(c.formats[i].Pattern)
		re, err := regexp.Compile(expanded)
		if err != nil {
			return fmt.Errorf("format %s: %w", c.formats[i].Name, err)
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// expand replaces {PLACEHOLDER} with a non-capturing group of the base regex.
func (c *Compiler) expand(pattern string) string {
	result := pattern
	for name, regex := range c.basePatterns {
		result = strings.ReplaceAll(result, "{"+name+"}", "(?:"+regex+")")
	}
	return result
}

// Match represents a successful pattern match with extracted fields.
type Match struct {
	FormatName string            // Name of the matched format
	Captures   map[string]string // Named capture group values
	Spans      map[string][2]int // Byte offsets of each named capture
	Start, End int               // Byte offsets of the whole match
}

func newMatch(f Format, loc []int, text string) *Match {
	m := &Match{
		FormatName: f.Name,
		Captures:   make(map[string]string),
		Spans:      make(map[string][2]int),
		Start:      loc[0],
		End:        loc[1],
	}
	for i, name := range f.Compiled.SubexpNames() {
		if i == 0 || name == "" || loc[2*i] < 0 {
			continue
		}
		m.Captures[name] = text[loc[2*i]:loc[2*i+1]]
		m.Spans[name] = [2]int{loc[2*i], loc[2*i+1]}
	}
	return m
}

// Parse returns the first format that matches text, or nil.
func (c *Compiler) Parse(text string) *Match {
	upperText := strings.ToUpper(text)
	for _, f := range c.formats {
		if f.Compiled == nil {
			continue
		}
		if loc := f.Compiled.FindStringSubmatchIndex(upperText); loc != nil {
			return newMatch(f, loc, upperText)
		}
	}
	return nil
}

// ParseAll returns the first match of every format that matches, in format
// order. Callers use it when a match may still be rejected downstream.
func (c *Compiler) ParseAll(text string) []*Match {
	upperText := strings.ToUpper(text)
	var results []*Match
	for _, f := range c.formats {
		if f.Compiled == nil {
			continue
		}
		if loc := f.Compiled.FindStringSubmatchIndex(upperText); loc != nil {
			results = append(results, newMatch(f, loc, upperText))
		}
	}
	return results
}

// FindAllMatches finds all occurrences of a single named format in text.
func (c *Compiler) FindAllMatches(text string, formatName string) []*Match {
	upperText := strings.ToUpper(text)
	for _, f := range c.formats {
		if f.Name != formatName || f.Compiled == nil {
			continue
		}
		var results []*Match
		for _, loc := range f.Compiled.FindAllStringSubmatchIndex(upperText, -1) {
			results = append(results, newMatch(f, loc, upperText))
		}
		return results
	}
	return nil
}

// GetCapture is a helper to safely get a capture value with a default.
func (m *Match) GetCapture(name string, defaultVal string) string {
	if m == nil {
		return defaultVal
	}
	if val, ok := m.Captures[name]; ok && val != "" {
		return val
	}
	return defaultVal
}

// FormatTrace contains debug information about a format match attempt.
type FormatTrace struct {
	Name     string            `json:"name"`
	Matched  bool              `json:"matched"`
	Pattern  string            `json:"pattern"`
	Captures map[string]string `json:"captures,omitempty"`
}

// ParseTrace contains complete trace information for a parse attempt.
type ParseTrace struct {
	Formats []FormatTrace `json:"formats"`
	Match   *Match        `json:"match,omitempty"`
}

// ParseWithTrace tries every format and records why each did or did not
// match. Used by the classify command to debug template patterns.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	upperText := strings.ToUpper(text)
	trace := &ParseTrace{Formats: make([]FormatTrace, 0, len(c.formats))}

	for _, f := range c.formats {
		ft := FormatTrace{Name: f.Name, Pattern: c.expand(f.Pattern)}
		if f.Compiled != nil {
			if loc := f.Compiled.FindStringSubmatchIndex(upperText); loc != nil {
				m := newMatch(f, loc, upperText)
				ft.Matched = true
				ft.Captures = m.Captures
				if trace.Match == nil {
					trace.Match = m
				}
			}
		}
		trace.Formats = append(trace.Formats, ft)
	}
	return trace
}
