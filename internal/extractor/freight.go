package extractor

import (
	"regexp"
	"strings"

	"booking_parser/internal/order"
	"booking_parser/internal/patterns"

	"github.com/shopspring/decimal"
)

// nonPriceLabel marks lines whose numbers are never the price.
var nonPriceLabel = regexp.MustCompile(`(?i)\b(TEL|TELEPHONE|PHONE|MOB|MOBILE|FAX|VAT|TVA|REF|REFERENCE|ORDER|BOOKING|SIRET|SIREN|IBAN|SWIFT|BIC|ACCOUNT|POSTCODE|ZIP)\b`)

type freight struct {
	Amount         decimal.Decimal
	Currency       string
	Source         order.Source
	CurrencySource order.Source
}

// extractFreight runs the price chain: a currency amount on a price line,
// any currency amount, a bare number on a price line, the first large
// number, and finally zero.
func (e *Engine) extractFreight(lines []string) freight {
	priceLine := func(l string) bool {
		return patterns.HasPriceHint(l) && !valueLabel.MatchString(l) && !weightLabel.MatchString(l)
	}

	for _, l := range lines {
		if !priceLine(l) {
			continue
		}
		if m, ok := patterns.FindAmount(l); ok {
			return freight{Amount: m.Amount, Currency: m.Currency, Source: order.SourceExplicit, CurrencySource: order.SourceExplicit}
		}
	}

	for _, l := range lines {
		if valueLabel.MatchString(l) || patterns.IsInstructionLine(l) || patterns.IsTermsLine(l) {
			continue
		}
		if m, ok := patterns.FindAmount(l); ok {
			return freight{Amount: m.Amount, Currency: m.Currency, Source: order.SourceHeuristic, CurrencySource: order.SourceHeuristic}
		}
	}

	for _, l := range lines {
		if !priceLine(l) || weightPattern.MatchString(l) {
			continue
		}
		if d, ok := patterns.FindBigNumber(l, decimal.NewFromInt(1)); ok {
			return e.looseFreight(d, l)
		}
	}

	for _, l := range lines {
		if nonPriceLabel.MatchString(l) || weightPattern.MatchString(l) || ldmPattern.MatchString(l) ||
			volumePattern.MatchString(l) || packagePattern.MatchString(l) || patterns.LooksLikeStreet(l) {
			continue
		}
		if d, ok := patterns.FindBigNumber(l, e.profile.MinLooseFreight); ok {
			return e.looseFreight(d, l)
		}
	}

	return freight{Amount: decimal.Zero, Currency: order.DefaultCurrency, Source: order.SourceDefault, CurrencySource: order.SourceDefault}
}

func (e *Engine) looseFreight(d decimal.Decimal, line string) freight {
	f := freight{Amount: d, Currency: order.DefaultCurrency, Source: order.SourceFallback, CurrencySource: order.SourceDefault}
	upper := strings.ToUpper(line)
	for _, code := range []string{"EUR", "GBP", "USD"} {
		if patterns.ContainsWord(upper, code) {
			f.Currency, f.CurrencySource = code, order.SourceFallback
			break
		}
	}
	return f
}
