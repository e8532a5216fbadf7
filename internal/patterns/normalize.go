package patterns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRun     = regexp.MustCompile(`\s+`)
	informalTime = regexp.MustCompile(`\b(\d{1,2})[hH](\d{2})\b`)
	dashFolder   = strings.NewReplacer("\u2013", "-", "\u2014", "-", "\u2010", "-", "\u2011", "-", "\u2212", "-", "\u00a0", " ", "\u202f", " ")
)

// NormalizeLine composes Unicode, folds dash variants and non-breaking
// spaces, drops control characters, collapses whitespace and rewrites
// informal "8h00" times as "08:00".
func NormalizeLine(line string) string {
	line = norm.NFC.String(line)
	line = dashFolder.Replace(line)
	line = strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r == '\ufeff', unicode.IsControl(r):
			return -1
		}
		return r
	}, line)
	line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))

	return informalTime.ReplaceAllStringFunc(line, func(m string) string {
		sub := informalTime.FindStringSubmatch(m)
		h, _ := strconv.Atoi(sub[1])
		mm, _ := strconv.Atoi(sub[2])
		if h > 23 || mm > 59 {
			return m
		}
		return fmt.Sprintf("%02d:%02d", h, mm)
	})
}

// NormalizeLines splits embedded newlines, normalises each line and drops
// lines that end up empty.
func NormalizeLines(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.FieldsFunc(r, func(c rune) bool { return c == '\n' || c == '\r' }) {
			if line := NormalizeLine(part); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
