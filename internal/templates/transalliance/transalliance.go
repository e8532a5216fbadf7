// Package transalliance handles Transalliance chartering confirmations.
package transalliance

import (
	"regexp"

	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
	"booking_parser/internal/patterns"
	"booking_parser/internal/registry"
)

var markers = registry.MarkerSet{
	Hard:    []string{"CHARTERING CONFIRMATION", "TRANSALLIANCE", "FUSM"},
	MinHard: 2,
	Soft: [][]string{
		{"ORDER", "REF", "REFERENCE", "BOOKING", "CONFIRMATION"},
		{"EUR", "GBP", "USD", "€", "£", "$"},
		{"LOADING", "DELIVERY", "DESTINATION"},
	},
	MinSoft: 2,
}

var referenceRules = []patterns.ReferenceRule{
	{
		Name:         "ref_colon",
		Priority:     patterns.RefPriorityTemplate,
		Pattern:      regexp.MustCompile(`(?i)\bREF\.?\s*[:\-]\s*([A-Z0-9/\-]{4,})\b`),
		RequireDigit: true,
	},
	{
		Name:         "reference_colon",
		Priority:     patterns.RefPriorityTemplate,
		Pattern:      regexp.MustCompile(`(?i)\bREFERENCE\b\s*[:\-]\s*([A-Z0-9/\-]{4,})`),
		RequireDigit: true,
	},
	{
		Name:     "ref_digits",
		Priority: patterns.RefPriorityRef,
		Pattern:  regexp.MustCompile(`(?i)\bREF\.?:?\s*\.?\s*([0-9]{6,10})\b`),
	},
}

// Profile returns the Transalliance extraction profile.
func Profile() extractor.Profile {
	p := extractor.GenericProfile()
	p.Name = "transalliance"
	p.LoadingMarkers = []string{"LOADING", "PICKUP", "PICK-UP", "ORIGIN", "CHARGEMENT"}
	p.DeliveryMarkers = []string{"DELIVERY", "DESTINATION", "SHIP TO", "CONSIGNEE", "LIVRAISON"}
	p.KnownCompanies = []string{"EP GROUP", "DP WORLD", "ICONEX"}
	p.CustomerAnchors = []string{"TRANSALLIANCE"}
	p.ReferenceRules = referenceRules
	p.FilenameReference = regexp.MustCompile(`(?i)\b(FUSM[0-9]{10,})`)
	p.CommentReferencePrefix = true
	p.CommentKeywords = []string{
		"INSTRUCTION", "INSTRUCTIONS", "COMPLIANCE", "INSURANCE", "PALLET", "PALLETS", "EXCHANGE",
		"SCAN", "BON D'ECHANGE", "DIESEL", "INVOICE", "INVOICING ADDRESS",
	}
	return p
}

// Template extracts Transalliance documents.
type Template struct {
	engine *extractor.Engine
}

func init() {
	registry.Register(New())
}

// New creates the template.
func New(opts ...extractor.Option) *Template {
	return &Template{engine: extractor.New(Profile(), opts...)}
}

func (t *Template) Name() string  { return "transalliance" }
func (t *Template) Priority() int { return 10 }

// QuickCheck needs two lines naming the sender and two structural hints.
func (t *Template) QuickCheck(lines []string) bool {
	return markers.Check(lines)
}

// Configure rebuilds the engine with opts. Not safe for use concurrent with
// Extract.
func (t *Template) Configure(opts ...extractor.Option) {
	t.engine = extractor.New(Profile(), opts...)
}

func (t *Template) Extract(doc *document.Document) *extractor.Result {
	return t.engine.Extract(doc)
}

func (t *Template) ClassifyWithTrace(lines []string) *registry.TraceResult {
	return markers.Trace(t.Name(), lines)
}
