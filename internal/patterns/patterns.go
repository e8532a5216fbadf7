// Package patterns provides shared regex patterns and helper functions for
// booking confirmation extraction.
package patterns

import (
	"regexp"
	"strings"
)

// Street and place vocabulary.
var (
	// streetPattern matches street-type keywords in EN/FR/LT/DE addresses.
	streetPattern = regexp.MustCompile(`(?i)\b(ROAD|RD|ST|STREET|LANE|AVE|AVENUE|RUE|ROUTE|RTE|CHEMIN|CHEM|WAY|PARK|COURT|DR|DRIVE|CLOSE|PLACE|BLVD|BOULEVARD|ALLEE|IMPASSE|QUAI|GATEWAY|PORT|CROSSING|ESTATE|UNIT|UNITS|ZI|ZA|ZAC|STRASSE|STR|GATVE|G|PR)\b\.?`)

	// regionPattern matches administrative-area words that are never a city.
	regionPattern = regexp.MustCompile(`(?i)\b(APSKRITIS|REGION|COUNTY|PROVINCE|DEPARTMENT|DEPARTEMENT|DÉPARTEMENT)\b`)

	// companyShape matches upper-case name lines.
	companyShape = regexp.MustCompile(`^[A-Z0-9 '\-&/.,()]{3,}$`)

	// fieldLabel matches lines led by a contact or document label.
	fieldLabel = regexp.MustCompile(`(?i)^(CONTACT|ATTN|ATTENTION|TEL|TELEPHONE|PHONE|MOB|MOBILE|FAX|E-?MAIL|VAT|TVA|DATE|TIME|REF|REFERENCE|BOOKING|ORDER)\b`)

	// priceHintPattern marks lines that talk about the agreed price.
	priceHintPattern = regexp.MustCompile(`(?i)\b(PRICE|PRIX|SHIPPING|FREIGHT|FRET|RATE|TARIF|CHARGE|CHARGES|TOTAL|AMOUNT|MONTANT)\b`)
)

// LegalSuffixes are the company-form tokens recognised in names.
var LegalSuffixes = []string{
	"LTD", "LIMITED", "PLC", "LLC", "INC", "CO", "C/O",
	"SA", "S.A.", "SAS", "SARL", "SRL", "SPA",
	"GMBH", "AG", "KG", "BV", "NV", "UAB", "AB", "OY",
}

var legalSuffixSet = func() map[string]bool {
	m := make(map[string]bool, len(LegalSuffixes))
	for _, s := range LegalSuffixes {
		m[strings.ReplaceAll(s, ".", "")] = true
	}
	return m
}()

func isLegalToken(tok string) bool {
	return legalSuffixSet[strings.ReplaceAll(strings.Trim(tok, ",;()"), ".", "")]
}

// InstructionKeywords mark handling instructions and legal boilerplate.
var InstructionKeywords = []string{
	"PLEASE", "MUST", "NOTE", "REMARK", "REMARKS", "INSTRUCTION", "INSTRUCTIONS",
	"REQUIRED", "MANDATORY", "DO NOT", "DON'T", "SHOULD", "WARNING", "IMPORTANT",
	"DRIVER", "DRIVERS", "VEHICLE", "PHONE BEFORE", "CALL",
	"SAFETY", "PPE", "HI-VIS", "HIGH VIS", "BOOTS", "STRAPS",
	"INVOICE", "INVOICING", "BILLING", "PRICE MUST", "CMR", "DELIVERY NOTE", "TONNAGE",
	"FUEL SURCHARGE", "ROAD TAX", "FORBIDDEN", "SUBCONTRACT", "SUBCONTRACTOR", "SUBCONTRACTING",
	"CLAIM", "CLAIMS", "EQUIPMENT", "DOCUMENTS", "REGULATIONS", "ORANGE LANE", "SCAN",
	"BON D'ECHANGE", "INSURANCE", "COMPLIANCE", "LIABILITY", "PENALTY", "WAITING TIME",
	"DEMURRAGE", "PAYMENT", "TERMS", "CONDITIONS", "CONSIGNES", "OBLIGATOIRE", "INTERDIT",
	"CHAUFFEUR",
}

// CommentKeywords select the lines worth carrying into the order comment.
var CommentKeywords = []string{
	"INSTRUCTION", "INSTRUCTIONS", "COMPLIANCE", "INSURANCE", "PALLET EXCHANGE", "EXCHANGE",
	"SCAN", "BON D'ECHANGE", "DIESEL", "INVOICE", "INVOICING ADDRESS", "TAIL LIFT",
	"ADR", "TEMPERATURE", "FRAGILE", "DO NOT STACK", "NON STACKABLE",
}

// TermsKeywords start administrative sections that end any address block.
var TermsKeywords = []string{
	"TERMS", "CONDITIONS", "ALL BUSINESS", "PAYMENT", "INVOICE", "GENERAL SALES",
	"CONDITIONS GENERALES",
}

var bulletPrefixes = []string{"•", "●", "▪", "◦", "·", "* ", "- ", "> "}

// IsInstructionLine reports whether a line is an instruction, a bullet or
// legal boilerplate rather than address or cargo data.
func IsInstructionLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if len(trimmed) > 180 {
		return true
	}
	for _, p := range bulletPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return ContainsWord(strings.ToUpper(trimmed), InstructionKeywords...)
}

// IsTermsLine reports whether a line opens a terms/payment section.
func IsTermsLine(line string) bool {
	upper := strings.ToUpper(strings.TrimLeft(strings.TrimSpace(line), "-•*> "))
	for _, kw := range TermsKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// LooksLikeStreet reports whether a line contains a street-type keyword and
// a house number or is led by one.
func LooksLikeStreet(line string) bool {
	if !streetPattern.MatchString(line) {
		return false
	}
	return containsDigit(line) || StreetKeywordCount(line) >= 2
}

// StreetKeywordCount counts distinct street keyword hits in a line.
func StreetKeywordCount(line string) int {
	return len(streetPattern.FindAllString(line, -1))
}

// IsRegionWord reports whether text names an administrative area.
func IsRegionWord(text string) bool {
	return regionPattern.MatchString(text)
}

// HasLegalSuffix reports whether any whole token of the line is a legal form.
func HasLegalSuffix(line string) bool {
	for _, tok := range strings.Fields(strings.ToUpper(line)) {
		if isLegalToken(tok) {
			return true
		}
	}
	return false
}

// StripLegalSuffixes removes legal-form tokens and folds the remainder to
// upper case for near-duplicate comparison.
func StripLegalSuffixes(name string) string {
	var kept []string
	for _, tok := range strings.Fields(strings.ToUpper(name)) {
		if isLegalToken(tok) {
			continue
		}
		tok = strings.Trim(tok, ",;().")
		if tok == "" {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// IsLikelyCompany reports whether a line looks like a company name: a legal
// suffix, or an upper-case name line that carries no address, date or
// amount.
func IsLikelyCompany(line string) bool {
	s := strings.TrimSpace(line)
	if len(s) < 3 || len(s) > 90 {
		return false
	}
	upper := strings.ToUpper(s)
	if strings.HasSuffix(s, ":") && !strings.Contains(upper, "REF") {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' || fieldLabel.MatchString(s) {
		return false
	}
	if letterCount(s) < 2 || IsInstructionLine(s) || LooksLikeStreet(s) {
		return false
	}
	if _, ok := FindPostcode(s); ok {
		return false
	}
	if _, ok := FindDate(s); ok {
		return false
	}
	if _, ok := FindAmount(s); ok {
		return false
	}
	if HasLegalSuffix(s) {
		return true
	}
	return companyShape.MatchString(s)
}

// HasPriceHint reports whether the line mentions price, rate or freight.
func HasPriceHint(line string) bool {
	return priceHintPattern.MatchString(line)
}

// ContainsWord reports whether upper contains any of the words on word
// boundaries. Multi-word phrases match as a whole.
func ContainsWord(upper string, words ...string) bool {
	for _, w := range words {
		idx := 0
		for {
			i := strings.Index(upper[idx:], w)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(w)
			if boundary(upper, start-1) && boundary(upper, end) {
				return true
			}
			idx = start + 1
		}
	}
	return false
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

func containsDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r > 0x7f {
			n++
		}
	}
	return n
}
