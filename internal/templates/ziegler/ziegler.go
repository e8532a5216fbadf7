// Package ziegler handles Ziegler UK booking instructions.
//
// Ziegler documents open every stop with a "Collection <company> REF" or
// "Delivery <company> REF" line, number each package line separately and
// carry the customer block in the letter head.
package ziegler

import (
	"regexp"
	"strings"

	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
	"booking_parser/internal/order"
	"booking_parser/internal/patterns"
	"booking_parser/internal/registry"
)

const (
	companyName  = "ZIEGLER UK LTD"
	headerWindow = 6
)

// Letter-head address used when the header block is cut short.
var knownAddress = order.Address{
	StreetAddress: "LONDON GATEWAY LOGISTICS PARK, NORTH 4, NORTH SEA CROSSING",
	City:          "STANFORD LE HOPE",
	PostalCode:    "SS17 9FJ",
	Country:       "GB",
}

var markers = registry.MarkerSet{
	Hard:    []string{companyName},
	MinHard: 1,
	Soft:    [][]string{{"BOOKING", "ORDER"}},
	MinSoft: 1,
	Head:    50,
}

var (
	headerStop  = regexp.MustCompile(`(?i)\b(BOOKING|INSTRUCTION|TELEPHONE|REF)\b`)
	stopRef     = regexp.MustCompile(`(?i)\bREF\s+([A-Z0-9]+)`)
	bookedFor   = regexp.MustCompile(`(?i)\bBOOKED\s+FOR\s+(\d{2}/\d{2})`)
	carrierLine = regexp.MustCompile(`(?i)\bCarrier\s+(\S+)`)
	createdLine = regexp.MustCompile(`(?i)\bDate\s+(\d{2}/\d{2}/\d{4})`)
)

const restrictionNote = "Notes: Delivery to any address other than listed is prohibited without permission; signed POD required for payment"

// Profile returns the Ziegler extraction profile.
func Profile() extractor.Profile {
	return extractor.Profile{
		Name:            "ziegler",
		LoadingMarkers:  []string{"Collection"},
		DeliveryMarkers: []string{"Delivery"},
		MarkerMode:      extractor.MarkerPrefix,
		HeaderTrailers:  []string{"REF"},
		RequireTrailer:  true,
		Window:          20,
		Strict:          false,
		MaxStops:        10,
		ReferenceRules: []patterns.ReferenceRule{{
			Name:     "ziegler_ref",
			Priority: patterns.RefPriorityTemplate,
			Pattern:  regexp.MustCompile(`(?i)\bZiegler\s+Ref\s+(\d+)`),
		}},
		CargoPerPackageLine: true,
		NotesOnly:           true,
	}
}

// Hooks returns the Ziegler-specific extraction steps.
func Hooks() extractor.Hooks {
	return extractor.Hooks{
		Customer: customer,
		StopNote: stopNote,
		Notes:    notes,
	}
}

// customer reads the letter-head block below the company name and fills
// what it misses from the known head-office address.
func customer(lines []string, r patterns.AddressResolver) (order.Address, bool) {
	var addr order.Address
	found := false
	for i, l := range lines {
		if !strings.Contains(strings.ToUpper(l), companyName) {
			continue
		}
		var window []string
		for _, w := range lines[i+1 : min(i+1+headerWindow, len(lines))] {
			if headerStop.MatchString(w) {
				break
			}
			window = append(window, w)
		}
		r.CaptureCompany = false
		addr = r.Resolve(window, order.Address{Company: companyName})
		addr = addr.Merge(knownAddress)
		found = true
		break
	}

	if c := terms(lines); c != "" {
		addr.Comment = c
		found = true
	}
	return addr, found
}

func terms(lines []string) string {
	var parts []string
	seen := map[string]bool{}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			parts = append(parts, s)
		}
	}
	for _, l := range lines {
		lower := strings.ToLower(l)
		if strings.Contains(lower, "purchase order general terms") || strings.Contains(lower, "purchase order terms") {
			add("Ziegler purchase order terms apply")
		}
		if strings.Contains(lower, "please quote our reference number") || strings.Contains(lower, "quote our reference on your invoice") {
			add("Please quote our reference on invoice")
		}
	}
	return sentences(parts)
}

func stopNote(company, line string) (string, bool) {
	if m := stopRef.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(company + " REF " + strings.ToUpper(m[1])), true
	}
	if m := bookedFor.FindStringSubmatch(line); m != nil {
		return "BOOKED FOR " + m[1], true
	}
	return "", false
}

func notes(lines []string) []string {
	var parts []string
	restricted := false
	for _, l := range lines {
		if m := carrierLine.FindStringSubmatch(l); m != nil {
			parts = append(parts, "Carrier: "+m[1])
		}
		if m := createdLine.FindStringSubmatch(l); m != nil {
			parts = append(parts, "Booking created on "+m[1])
		}
		if strings.Contains(strings.ToLower(l), "delivery to any address other than") {
			restricted = true
		}
	}
	if restricted {
		parts = append(parts, restrictionNote)
	}
	if s := sentences(parts); s != "" {
		return []string{s}
	}
	return nil
}

// sentences joins parts with ". " and closes with a full stop.
func sentences(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// Template extracts Ziegler documents.
type Template struct {
	engine *extractor.Engine
}

func init() {
	registry.Register(New())
}

// New creates the template. The Ziegler hooks are always installed first so
// opts may replace them.
func New(opts ...extractor.Option) *Template {
	return &Template{engine: newEngine(opts)}
}

func newEngine(opts []extractor.Option) *extractor.Engine {
	return extractor.New(Profile(), append([]extractor.Option{extractor.WithHooks(Hooks())}, opts...)...)
}

func (t *Template) Name() string  { return "ziegler" }
func (t *Template) Priority() int { return 20 }

// QuickCheck looks for the company name and a booking keyword in the first
// 50 lines.
func (t *Template) QuickCheck(lines []string) bool {
	return markers.Check(lines)
}

// Configure rebuilds the engine with opts. Not safe for use concurrent with
// Extract.
func (t *Template) Configure(opts ...extractor.Option) {
	t.engine = newEngine(opts)
}

func (t *Template) Extract(doc *document.Document) *extractor.Result {
	return t.engine.Extract(doc)
}

func (t *Template) ClassifyWithTrace(lines []string) *registry.TraceResult {
	return markers.Trace(t.Name(), lines)
}
