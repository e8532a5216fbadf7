package patterns

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Reference priorities. Lower wins.
const (
	RefPriorityTemplate   = 1 // template keyword phrase: "Ziegler Ref", "REF.:"
	RefPriorityOurRef     = 2 // "Our Ref", "Reference:"
	RefPriorityRef        = 3 // bare "Ref"
	RefPriorityOrder      = 4 // "Order" / "Booking" labels
	RefPriorityPositional = 5 // longest plausible token, filename
)

// ReferenceRule proposes a reference from a single line.
type ReferenceRule struct {
	Name     string
	Priority int
	Pattern  *regexp.Regexp
	// RequireDigit rejects captures without a digit, which keeps labels like
	// "Booking Instruction" from producing "INSTRUCTION".
	RequireDigit bool
}

// GenericReferenceRules are the label rules shared by every template.
var GenericReferenceRules = []ReferenceRule{
	{
		Name:         "our_ref",
		Priority:     RefPriorityOurRef,
		Pattern:      regexp.MustCompile(`(?i)\bOUR\s*REF(?:ERENCE)?\b\.?\s*(?:NO\.?)?\s*[:#\-]?\s*([A-Z0-9][A-Z0-9/\-]{2,})`),
		RequireDigit: true,
	},
	{
		Name:         "reference",
		Priority:     RefPriorityOurRef,
		Pattern:      regexp.MustCompile(`(?i)\bREFERENCE\b\s*(?:NO\.?|NUMBER)?\s*[:#]\s*([A-Z0-9][A-Z0-9/\-]{2,})`),
		RequireDigit: true,
	},
	{
		Name:         "ref",
		Priority:     RefPriorityRef,
		Pattern:      regexp.MustCompile(`(?i)\bREF\b\.?\s*(?:NO\.?)?\s*[:#\-]?\s*\.?\s*([A-Z0-9][A-Z0-9/\-]{3,})`),
		RequireDigit: true,
	},
	{
		Name:         "order",
		Priority:     RefPriorityOrder,
		Pattern:      regexp.MustCompile(`(?i)\b(?:ORDER|BOOKING|CONFIRMATION)\b\s*(?:REF(?:ERENCE)?|NO\.?|NUMBER|N°|#)?\s*[:#\-]?\s*([A-Z0-9][A-Z0-9/\-]{3,})`),
		RequireDigit: true,
	},
}

var positionalToken = regexp.MustCompile(`\b[A-Z0-9][A-Z0-9/\-]{5,19}\b`)

// CollectReferences runs rules over lines and adds the positional
// candidates from the lines and the attachment filename.
func CollectReferences(lines []string, filename string, rules []ReferenceRule) Candidates[string] {
	var cands Candidates[string]
	for i, line := range lines {
		for _, r := range rules {
			sub := r.Pattern.FindStringSubmatch(line)
			if sub == nil {
				continue
			}
			val := cleanReference(sub[len(sub)-1])
			if val == "" || (r.RequireDigit && !containsDigit(val)) {
				continue
			}
			cands.Add(val, r.Priority, i, r.Name)
		}
	}

	if tok, line, ok := longestToken(lines); ok {
		cands.Add(tok, RefPriorityPositional, line, "positional")
	}
	if tok := filenameToken(filename); tok != "" {
		cands.Add(tok, RefPriorityPositional, len(lines), "filename")
	}
	return cands
}

// ResolveReference returns the winning reference, if any.
func ResolveReference(lines []string, filename string, rules []ReferenceRule) (Candidate[string], bool) {
	return CollectReferences(lines, filename, rules).Best()
}

func cleanReference(v string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(v), "-/."))
}

// longestToken finds the longest upper-case token mixing letters and
// digits that is not a date, time or postcode.
func longestToken(lines []string) (string, int, bool) {
	best, bestLine := "", -1
	for i, line := range lines {
		for _, tok := range positionalToken.FindAllString(strings.ToUpper(line), -1) {
			if !plausibleReference(tok) {
				continue
			}
			if len(tok) > len(best) {
				best, bestLine = tok, i
			}
		}
	}
	return best, bestLine, best != ""
}

func plausibleReference(tok string) bool {
	if !containsDigit(tok) || letterCount(tok) == 0 {
		return false
	}
	if IsPostcode(tok) {
		return false
	}
	if _, ok := FindDate(tok); ok {
		return false
	}
	return true
}

var filenameJunk = regexp.MustCompile(`[^A-Z0-9\-]+`)

// filenameToken turns "FUSM0001714403.pdf" into "FUSM0001714403". Names
// without a digit are ignored.
func filenameToken(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "." || base == "" {
		return ""
	}
	tok := strings.Trim(filenameJunk.ReplaceAllString(strings.ToUpper(base), "-"), "-")
	if len(tok) < 4 || !containsDigit(tok) {
		return ""
	}
	return tok
}
