// Package gazetteer maps free-text place names to ISO 3166-1 alpha-2
// country codes.
package gazetteer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lookup resolves a country code from free text. Implementations must be
// safe for concurrent reads.
type Lookup interface {
	Country(text string) (string, bool)
}

// Fold upper-cases s, strips diacritics and turns every run of
// non-alphanumeric characters into a single space.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToUpper(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Table is an in-memory gazetteer keyed by folded place name. Lookups match
// the longest run of whole words, leftmost first.
type Table struct {
	names    map[string]string
	maxWords int
}

// NewTable builds a table from name → ISO code entries.
func NewTable(entries map[string]string) *Table {
	t := &Table{names: make(map[string]string, len(entries))}
	for name, iso := range entries {
		t.Add(name, iso)
	}
	return t
}

// Add inserts or replaces a single entry. Not safe for use concurrent with
// Country; callers that mutate a live table must guard it.
func (t *Table) Add(name, iso string) {
	key := Fold(name)
	if key == "" || iso == "" {
		return
	}
	t.names[key] = strings.ToUpper(iso)
	if n := len(strings.Fields(key)); n > t.maxWords {
		t.maxWords = n
	}
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.names) }

// Country returns the code of the first known place name found in text.
func (t *Table) Country(text string) (string, bool) {
	words := strings.Fields(Fold(text))
	if len(words) == 0 {
		return "", false
	}

	for i := range words {
		for n := min(t.maxWords, len(words)-i); n >= 1; n-- {
			if iso, ok := t.names[strings.Join(words[i:i+n], " ")]; ok {
				return iso, true
			}
		}
	}
	return "", false
}

var builtin = NewTable(map[string]string{
	// Country names and native spellings.
	"UNITED KINGDOM": "GB", "GREAT BRITAIN": "GB", "ENGLAND": "GB", "SCOTLAND": "GB",
	"WALES": "GB", "UK": "GB", "NORTHERN IRELAND": "GB",
	"FRANCE": "FR", "FRANCAISE": "FR", "FRANCAIS": "FR", "REPUBLIQUE FRANCAISE": "FR",
	"LITHUANIA": "LT", "LIETUVA": "LT", "LIETUVOS RESPUBLIKA": "LT",
	"GERMANY": "DE", "DEUTSCHLAND": "DE", "ALLEMAGNE": "DE",
	"BELGIUM": "BE", "BELGIQUE": "BE", "BELGIE": "BE",
	"NETHERLANDS": "NL", "NEDERLAND": "NL", "HOLLAND": "NL",
	"SPAIN": "ES", "ESPANA": "ES", "ESPAGNE": "ES",
	"ITALY": "IT", "ITALIA": "IT", "ITALIE": "IT",
	"POLAND": "PL", "POLSKA": "PL", "POLOGNE": "PL",
	"LATVIA": "LV", "LATVIJA": "LV", "ESTONIA": "EE", "EESTI": "EE",
	"IRELAND": "IE", "LUXEMBOURG": "LU", "PORTUGAL": "PT",
	"CZECH REPUBLIC": "CZ", "CZECHIA": "CZ", "AUSTRIA": "AT", "OSTERREICH": "AT",
	"SWITZERLAND": "CH", "SCHWEIZ": "CH", "SUISSE": "CH",
	"DENMARK": "DK", "DANMARK": "DK", "SWEDEN": "SE", "SVERIGE": "SE",

	// Freight hubs that show up without a postcode.
	"LONDON": "GB", "STANFORD LE HOPE": "GB", "FELIXSTOWE": "GB", "SOUTHAMPTON": "GB",
	"DOVER": "GB", "TILBURY": "GB", "STOWMARKET": "GB", "MANCHESTER": "GB",
	"BIRMINGHAM": "GB", "DAVENTRY": "GB", "IMMINGHAM": "GB", "BAKEWELL": "GB",
	"PARIS": "FR", "LYON": "FR", "MARSEILLE": "FR", "LILLE": "FR", "CALAIS": "FR",
	"DUNKERQUE": "FR", "LE HAVRE": "FR", "RUNGIS": "FR", "ROISSY": "FR", "TAVERNY": "FR",
	"STRASBOURG": "FR", "TOULOUSE": "FR", "BORDEAUX": "FR", "NANTES": "FR", "SAINT PRIEST": "FR",
	"VILNIUS": "LT", "KAUNAS": "LT", "KLAIPEDA": "LT", "SIAULIAI": "LT", "PANEVEZYS": "LT",
	"HAMBURG": "DE", "BREMEN": "DE", "DUISBURG": "DE",
	"ROTTERDAM": "NL", "VENLO": "NL", "ANTWERP": "BE", "ANTWERPEN": "BE", "ZEEBRUGGE": "BE",
})

// Builtin returns the shared built-in table.
func Builtin() *Table { return builtin }
