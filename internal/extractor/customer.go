package extractor

import (
	"strings"

	"booking_parser/internal/gazetteer"
	"booking_parser/internal/order"
	"booking_parser/internal/patterns"
)

// extractCustomer finds the ordering party: the first unclaimed anchor or
// legal-suffix company line, with the address lines below it. The lines it
// uses are claimed so the stop passes skip them.
func (e *Engine) extractCustomer(lines []string, claimed map[int]bool) (order.Address, bool) {
	if e.hooks.Customer != nil {
		return e.hooks.Customer(lines, e.resolver)
	}

	for i, line := range lines {
		if claimed[i] || !e.isCustomerLine(line) {
			continue
		}
		end := e.customerEnd(lines, i, claimed)
		resolver := e.resolver
		resolver.CaptureCompany = false
		addr := resolver.Resolve(lines[i+1:end], order.Address{Company: line})
		for j := i; j < end; j++ {
			claimed[j] = true
		}
		e.logger.Debug("customer", "company", addr.Company, "line", i)
		return addr, true
	}
	return order.Address{}, false
}

func (e *Engine) isCustomerLine(line string) bool {
	if len(e.profile.CustomerAnchors) > 0 && patterns.ContainsWord(strings.ToUpper(line), e.profile.CustomerAnchors...) {
		return !patterns.IsInstructionLine(line)
	}
	return patterns.HasLegalSuffix(line) && patterns.IsLikelyCompany(line)
}

// customerEnd bounds the customer block: it stops at claimed, pricing and
// terms lines, at another legal company, and at a company line once a
// postal code has been read.
func (e *Engine) customerEnd(lines []string, i int, claimed map[int]bool) int {
	limit := min(i+1+e.profile.CustomerWindow, len(lines))
	sawPostcode := false
	for j := i + 1; j < limit; j++ {
		l := lines[j]
		if claimed[j] || isPricingLine(l) || patterns.IsTermsLine(l) {
			return j
		}
		if patterns.IsLikelyCompany(l) && (sawPostcode || patterns.HasLegalSuffix(l)) && !e.isPlaceLine(l) {
			return j
		}
		if _, ok := patterns.FindPostcode(l); ok {
			sawPostcode = true
		}
	}
	return limit
}

// isPlaceLine reports whether l is a short line naming a known country or
// city, which continues an address rather than starting a new block.
func (e *Engine) isPlaceLine(l string) bool {
	countries := e.resolver.Countries
	if countries == nil {
		countries = gazetteer.Builtin()
	}
	if len(strings.Fields(l)) > 3 || patterns.HasLegalSuffix(l) {
		return false
	}
	_, ok := countries.Country(l)
	return ok
}
