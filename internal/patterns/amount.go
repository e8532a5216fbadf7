package patterns

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount with its ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
	Format   string // format that produced the match
}

var currencySymbols = map[string]string{
	"€": "EUR",
	"£": "GBP",
	"$": "USD",
}

// CurrencyFromSymbol maps a currency symbol to its ISO code.
func CurrencyFromSymbol(sym string) string {
	return currencySymbols[sym]
}

// amountFormats are the four price shapes, tried in order on each line.
var amountFormats = MustCompile([]Format{
	{Name: "code_amount", Pattern: `\b(?P<currency>{CURRENCY})\b[^\d]*?(?P<amount>{AMOUNT})`},
	{Name: "amount_code", Pattern: `(?P<amount>{AMOUNT})\s*(?P<currency>{CURRENCY})\b`},
	{Name: "symbol_amount", Pattern: `(?P<symbol>{SYMBOL})\s*(?P<amount>{AMOUNT})`},
	{Name: "amount_symbol", Pattern: `(?P<amount>{AMOUNT})\s*(?P<symbol>{SYMBOL})`},
}, nil)

var (
	amountJunk   = regexp.MustCompile(`[^\d., ]`)
	amountFinal  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	commaDecimal = regexp.MustCompile(`,\d{2}$`)
)

// ParseAmount parses a loosely formatted number. The rightmost of "." and
// "," is the decimal separator when both appear; a lone "," is decimal only
// when exactly two digits follow it; several "." with no "," are grouping.
// Spaces are always grouping.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(amountJunk.ReplaceAllString(raw, ""))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if commaDecimal.MatchString(s) && strings.Count(s, ",") == 1 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	if !amountFinal.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FindAmount returns the first parseable currency amount in line. A shape
// whose number does not parse falls through to the next shape.
func FindAmount(line string) (Money, bool) {
	for _, m := range amountFormats.ParseAll(line) {
		if span := m.Spans["amount"]; gluedToDateOrTime(line, span[0], span[1]) {
			continue
		}
		raw := strings.TrimRight(m.Captures["amount"], ".,")
		amount, ok := ParseAmount(raw)
		if !ok {
			continue
		}
		currency := m.Captures["currency"]
		if currency == "" {
			currency = CurrencyFromSymbol(m.Captures["symbol"])
		}
		return Money{Amount: amount, Currency: currency, Format: m.FormatName}, true
	}
	return Money{}, false
}

var bareNumber = regexp.MustCompile(`\b\d{1,3}(?:[ .,]\d{3})+(?:[.,]\d{1,2})?\b|\b\d{3,}(?:[.,]\d{1,2})?\b`)

// FindBigNumber returns the first number in line that is at least min and
// carries no date or postcode shape. It backs the loose price scan.
func FindBigNumber(line string, min decimal.Decimal) (decimal.Decimal, bool) {
	for _, loc := range bareNumber.FindAllStringIndex(line, -1) {
		tok := line[loc[0]:loc[1]]
		if Classify(tok) != "" {
			continue
		}
		if gluedToDateOrTime(line, loc[0], loc[1]) {
			continue
		}
		d, ok := ParseAmount(tok)
		if ok && d.GreaterThanOrEqual(min) {
			return d, true
		}
	}
	return decimal.Zero, false
}

// gluedToDateOrTime reports whether the digits at line[start:end] are part
// of a date or clock time.
func gluedToDateOrTime(line string, start, end int) bool {
	if end < len(line) && strings.ContainsRune("/:", rune(line[end])) {
		return true
	}
	return start > 0 && strings.ContainsRune("/:", rune(line[start-1]))
}
