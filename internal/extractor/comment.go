package extractor

import (
	"strings"

	"booking_parser/internal/patterns"
)

const commentSeparator = " | "

// extractComment collects instruction and keyword lines, deduplicated in
// document order, plus any template notes.
func (e *Engine) extractComment(lines []string, ref string) string {
	var (
		parts []string
		seen  = map[string]bool{}
	)
	add := func(s string) {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			return
		}
		seen[key] = true
		parts = append(parts, s)
	}

	if !e.profile.NotesOnly {
		for _, l := range lines[e.commentStart(lines):] {
			if patterns.IsInstructionLine(l) || patterns.ContainsWord(strings.ToUpper(l), e.profile.CommentKeywords...) {
				add(l)
			}
		}
	}
	if e.hooks.Notes != nil {
		for _, n := range e.hooks.Notes(lines) {
			add(n)
		}
	}

	if len(parts) == 0 {
		return ""
	}
	out := strings.Join(parts, commentSeparator)
	if e.profile.CommentReferencePrefix && ref != "" {
		out = "Order Ref: " + ref + commentSeparator + out
	}
	return out
}

// commentStart is the first line after the instructions heading, or 0.
func (e *Engine) commentStart(lines []string) int {
	if e.profile.InstructionsSection == "" {
		return 0
	}
	heading := strings.ToUpper(e.profile.InstructionsSection)
	for i, l := range lines {
		if strings.Contains(strings.ToUpper(l), heading) {
			return i + 1
		}
	}
	return 0
}
