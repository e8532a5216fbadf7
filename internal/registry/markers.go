package registry

import (
	"strings"

	"booking_parser/internal/patterns"
)

// MarkerSet classifies a document by the phrases it contains. Hard markers
// identify the sender and are counted once per line; soft markers are
// grouped and every group a line matches adds one hit.
type MarkerSet struct {
	Hard    []string
	MinHard int

	Soft    [][]string
	MinSoft int

	// Head limits the scan to the first Head lines. Zero scans everything.
	Head int
}

// Check reports whether lines meet both thresholds.
func (m MarkerSet) Check(lines []string) bool {
	return m.Trace("", lines).Matched
}

// Trace classifies lines and records every marker lookup.
func (m MarkerSet) Trace(name string, lines []string) *TraceResult {
	if m.Head > 0 && len(lines) > m.Head {
		lines = lines[:m.Head]
	}
	upper := make([]string, len(lines))
	for i, l := range lines {
		upper[i] = strings.ToUpper(l)
	}

	res := &TraceResult{TemplateName: name}

	hard := 0
	firstHard := map[string]int{}
	for i, l := range upper {
		hit := false
		for _, h := range m.Hard {
			if !strings.Contains(l, strings.ToUpper(h)) {
				continue
			}
			if _, ok := firstHard[h]; !ok {
				firstHard[h] = i
			}
			hit = true
		}
		if hit {
			hard++
		}
	}
	for _, h := range m.Hard {
		line, ok := firstHard[h]
		res.Markers = append(res.Markers, MarkerTrace{Marker: h, Hard: true, Matched: ok, Line: line})
	}

	soft := 0
	firstSoft := map[string]int{}
	for i, l := range upper {
		for _, group := range m.Soft {
			for _, s := range group {
				if patterns.ContainsWord(l, strings.ToUpper(s)) {
					if _, ok := firstSoft[s]; !ok {
						firstSoft[s] = i
					}
					soft++
					break
				}
			}
		}
	}
	for _, group := range m.Soft {
		for _, s := range group {
			line, ok := firstSoft[s]
			res.Markers = append(res.Markers, MarkerTrace{Marker: s, Matched: ok, Line: line})
		}
	}

	passed := hard >= m.MinHard && soft >= m.MinSoft
	reason := ""
	switch {
	case hard < m.MinHard:
		reason = "hard markers below threshold"
	case soft < m.MinSoft:
		reason = "soft markers below threshold"
	}
	res.QuickCheck = &QuickCheck{Passed: passed, Reason: reason}
	res.Matched = passed
	return res
}
