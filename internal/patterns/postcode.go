package patterns

import (
	"regexp"
	"strings"
)

// Postcode is a postcode found inside a line.
type Postcode struct {
	Code    string
	Country string
	// Ambiguous is set for bare five-digit codes, which several countries
	// share; an explicit country mention should override the inferred one.
	Ambiguous  bool
	Start, End int
}

var postcodeFormats = MustCompile([]Format{
	{Name: "GB", Pattern: `\b(?P<code>{POSTCODE_GB})\b`},
	{Name: "LT", Pattern: `\b(?P<code>{POSTCODE_LT})\b`},
	{Name: "FR", Pattern: `\b(?P<code>{POSTCODE_5})\b`},
}, nil)

var (
	gbWhole = regexp.MustCompile(`^[A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2}$`)
	ltWhole = regexp.MustCompile(`^(?:LT-)?\d{5}$`)
	frWhole = regexp.MustCompile(`^\d{5}$`)
)

// Classify returns the primary country grammar a whole token satisfies:
// GB first, then an "LT-" prefixed code, then a bare five-digit code as FR.
func Classify(token string) string {
	t := strings.ToUpper(strings.TrimSpace(token))
	switch {
	case gbWhole.MatchString(t):
		return "GB"
	case strings.HasPrefix(t, "LT-") && ltWhole.MatchString(t):
		return "LT"
	case frWhole.MatchString(t):
		return "FR"
	}
	return ""
}

// ClassifyAll returns every grammar the token satisfies, in precedence order.
// "01100" satisfies both FR and LT.
func ClassifyAll(token string) []string {
	t := strings.ToUpper(strings.TrimSpace(token))
	var out []string
	if gbWhole.MatchString(t) {
		out = append(out, "GB")
	}
	if frWhole.MatchString(t) {
		out = append(out, "FR")
	}
	if ltWhole.MatchString(t) {
		out = append(out, "LT")
	}
	return out
}

// Matches reports whether token satisfies the grammar of country.
func Matches(token, country string) bool {
	for _, c := range ClassifyAll(token) {
		if c == strings.ToUpper(country) {
			return true
		}
	}
	return false
}

// IsPostcode reports whether token satisfies any known grammar.
func IsPostcode(token string) bool {
	return Classify(token) != ""
}

// CanonicalGB upper-cases a GB postcode and puts a single space before the
// inward code: "ss179fj" → "SS17 9FJ".
func CanonicalGB(code string) string {
	c := strings.ToUpper(strings.ReplaceAll(code, " ", ""))
	if len(c) < 5 {
		return c
	}
	return c[:len(c)-3] + " " + c[len(c)-3:]
}

// FindPostcode returns the first postcode in line, by grammar precedence.
func FindPostcode(line string) (Postcode, bool) {
	m := postcodeFormats.Parse(line)
	if m == nil {
		return Postcode{}, false
	}
	span := m.Spans["code"]
	pc := Postcode{
		Code:    m.Captures["code"],
		Country: m.FormatName,
		Start:   span[0],
		End:     span[1],
	}
	switch pc.Country {
	case "GB":
		pc.Code = CanonicalGB(pc.Code)
	case "FR":
		pc.Ambiguous = true
	}
	return pc, true
}

// ClassifyWithHint prefers hint when the token satisfies that country's
// grammar, and falls back to Classify otherwise.
func ClassifyWithHint(token, hint string) string {
	if hint != "" && Matches(token, hint) {
		return strings.ToUpper(hint)
	}
	return Classify(token)
}
