package patterns

import (
	"regexp"
	"strings"

	"booking_parser/internal/gazetteer"
	"booking_parser/internal/order"
)

var (
	emailPattern   = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)
	vatPattern     = regexp.MustCompile(`(?i)\b(?:VAT|TVA|PVM|USt-?IdNr)\b\.?\s*(?:NO\.?|NUMBER|CODE|KODAS)?\s*[:#\-]?\s*([A-Z]{2}[A-Z0-9\-]{4,})`)
	contactPattern = regexp.MustCompile(`(?i)\b(?:CONTACT(?:\s+PERSON)?|ATTN|ATTENTION)\b\.?\s*[:\-]?\s*([A-Z][A-Z '\-.]+)`)
	cityNoise      = regexp.MustCompile(`[\d(].*$`)
)

// AddressResolver folds a window of lines into an Address.
type AddressResolver struct {
	// Countries resolves country mentions and known cities. Nil uses the
	// built-in gazetteer.
	Countries gazetteer.Lookup
	// CaptureCompany lets a company-looking line set the company when the
	// caller has not seeded one.
	CaptureCompany bool
}

func (r AddressResolver) countries() gazetteer.Lookup {
	if r.Countries == nil {
		return gazetteer.Builtin()
	}
	return r.Countries
}

// observation is what a single line contributes.
type observation struct {
	addr          order.Address
	streetWeight  int
	countryWeak   bool // inferred from an ambiguous five-digit postcode
	countryStated bool // named outright in the line
}

// Resolve folds window into seed. Fields already set on seed are kept.
func (r AddressResolver) Resolve(window []string, seed order.Address) order.Address {
	acc := seed
	streetWeight := 0
	if acc.StreetAddress != "" {
		streetWeight = StreetKeywordCount(acc.StreetAddress)
	}
	weak := false
	stated := ""

	for _, line := range window {
		obs, ok := r.observe(line, acc)
		if !ok {
			continue
		}

		// A later line with two street keywords beats a weaker street.
		if acc.StreetAddress != "" && obs.addr.StreetAddress != "" &&
			obs.streetWeight >= 2 && obs.streetWeight > streetWeight {
			acc.StreetAddress = obs.addr.StreetAddress
			streetWeight = obs.streetWeight
		}
		if acc.StreetAddress == "" && obs.addr.StreetAddress != "" {
			streetWeight = obs.streetWeight
		}
		if acc.Country == "" && obs.addr.Country != "" {
			weak = obs.countryWeak
		}
		if obs.countryStated && stated == "" {
			stated = obs.addr.Country
		}
		acc = acc.Merge(obs.addr)
	}

	// An explicit mention outranks the FR guess for a bare five-digit code;
	// a known city only does when its country shares the grammar.
	if weak && acc.PostalCode != "" {
		switch {
		case stated != "":
			acc.Country = stated
		case acc.City != "":
			if hint, ok := r.countries().Country(acc.City); ok {
				acc.Country = ClassifyWithHint(acc.PostalCode, hint)
			}
		}
	}
	return SanitizeAddress(acc)
}

// observe extracts what one line says, in fixed priority order.
func (r AddressResolver) observe(line string, acc order.Address) (observation, bool) {
	var obs observation
	if line == "" || IsInstructionLine(line) {
		return obs, false
	}

	if r.CaptureCompany && acc.Company == "" && acc.StreetAddress == "" && acc.PostalCode == "" && IsLikelyCompany(line) {
		obs.addr.Company = line
		return obs, true
	}

	pc, hasPC := FindPostcode(line)

	if LooksLikeStreet(line) {
		street := line
		if hasPC && pc.Start > 0 {
			street = strings.Trim(line[:pc.Start], " ,;-")
		}
		if street != "" && !(hasPC && pc.Start == 0) {
			obs.addr.StreetAddress = street
			obs.streetWeight = StreetKeywordCount(street)
		}
	}

	if hasPC {
		obs.addr.PostalCode = pc.Code
		obs.addr.City = cityAround(line, pc)
		obs.addr.Country = pc.Country
		obs.countryWeak = pc.Ambiguous
	}

	if m := emailPattern.FindString(line); m != "" {
		obs.addr.Email = strings.ToLower(m)
	}
	if sub := vatPattern.FindStringSubmatch(line); sub != nil {
		obs.addr.VATCode = strings.ToUpper(sub[1])
	}
	if sub := contactPattern.FindStringSubmatch(line); sub != nil {
		obs.addr.ContactPerson = strings.TrimSpace(sub[1])
	}

	if iso, ok := r.countries().Country(line); ok {
		obs.countryStated = true
		if obs.addr.Country == "" || obs.countryWeak {
			obs.addr.Country = iso
			obs.countryWeak = false
		}
	}

	return obs, !obs.addr.IsZero()
}

// cityAround takes the city from the text after the postcode, or before it
// when nothing usable follows.
func cityAround(line string, pc Postcode) string {
	after := cleanCity(line[pc.End:])
	if after != "" {
		return after
	}
	return cleanCity(line[:pc.Start])
}

func cleanCity(s string) string {
	s = strings.Trim(s, " ,;:-/")
	s = strings.TrimSpace(cityNoise.ReplaceAllString(s, ""))
	s = strings.Trim(s, " ,;:-/")
	// Country prefixes such as "F-" or "LT " before the code.
	if len(s) <= 2 {
		return ""
	}
	if IsRegionWord(s) || LooksLikeStreet(s) || emailPattern.MatchString(s) {
		return ""
	}
	return s
}

// SanitizeAddress trims every field, collapses a doubled city, drops cities
// with fewer than two letters and postal codes that fail every grammar.
func SanitizeAddress(a order.Address) order.Address {
	a.Company = strings.TrimSpace(a.Company)
	a.StreetAddress = strings.TrimSpace(a.StreetAddress)
	a.City = collapseDoubled(strings.TrimSpace(a.City))
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.VATCode = strings.TrimSpace(a.VATCode)
	a.Email = strings.TrimSpace(a.Email)
	a.ContactPerson = strings.TrimSpace(a.ContactPerson)
	a.Comment = strings.TrimSpace(a.Comment)

	if letterCount(a.City) < 2 || IsRegionWord(a.City) {
		a.City = ""
	}
	if a.PostalCode != "" && !IsPostcode(a.PostalCode) {
		a.PostalCode = ""
	}
	if len(a.Country) != 2 {
		a.Country = ""
	}
	return a
}

// collapseDoubled turns "LONDON LONDON" into "LONDON".
func collapseDoubled(city string) string {
	words := strings.Fields(city)
	n := len(words)
	if n < 2 || n%2 != 0 {
		return city
	}
	for i := 0; i < n/2; i++ {
		if !strings.EqualFold(words[i], words[i+n/2]) {
			return city
		}
	}
	return strings.Join(words[:n/2], " ")
}
