// Package extractor turns the text lines of a booking confirmation into an
// order payload. The engine is stateless and safe for concurrent use; the
// per-template differences live in a Profile and optional Hooks.
package extractor

import (
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"booking_parser/internal/document"
	"booking_parser/internal/gazetteer"
	"booking_parser/internal/order"
	"booking_parser/internal/patterns"

	"github.com/shopspring/decimal"
)

// MarkerMode selects how section markers are matched against a line.
type MarkerMode int

const (
	// MarkerWord matches a marker anywhere in the line on word boundaries.
	MarkerWord MarkerMode = iota
	// MarkerPrefix matches only at the start of the line.
	MarkerPrefix
)

// Profile tunes the engine for one document template.
type Profile struct {
	Name string

	LoadingMarkers  []string
	DeliveryMarkers []string
	MarkerMode      MarkerMode
	// HeaderTrailers are dropped from the end of a marker line before its
	// remainder is considered as the stop company ("Collection ACME REF").
	HeaderTrailers []string
	// RequireTrailer rejects marker lines that do not end with a trailer.
	RequireTrailer bool

	Window     int  // lines scanned after a marker, clamped to 6..20
	BackWindow int  // lines searched backwards for a stop date
	Strict     bool // drop marker stops with neither company nor time
	MaxStops   int  // per role

	KnownCompanies  []string
	CustomerAnchors []string // words that mark the customer line besides a legal suffix
	CustomerWindow  int

	ReferenceRules []patterns.ReferenceRule
	// FilenameReference proposes a reference from the attachment name,
	// ranked after every label rule.
	FilenameReference      *regexp.Regexp
	CommentReferencePrefix bool
	// InstructionsSection limits comment collection to the lines after the
	// first line containing this phrase.
	InstructionsSection string
	CommentKeywords     []string
	// NotesOnly builds the comment from template notes alone.
	NotesOnly bool

	// CargoPerPackageLine starts a new cargo for every line carrying a
	// package count instead of folding the whole document into one.
	CargoPerPackageLine bool
	// MinLooseFreight is the smallest bare number accepted as a price by the
	// last-resort scan.
	MinLooseFreight decimal.Decimal
}

// Profile defaults.
const (
	DefaultWindow         = 8
	DefaultBackWindow     = 3
	DefaultMaxStops       = 2
	DefaultCustomerWindow = 12
	minWindow             = 6
	maxWindow             = 20
)

// GenericProfile is the layout-agnostic profile used by the catch-all
// template.
func GenericProfile() Profile {
	return Profile{
		Name: "generic",
		LoadingMarkers: []string{
			"LOADING", "LOADING PLACE", "PICKUP", "PICK-UP", "PICK UP", "COLLECTION", "ORIGIN",
			"SHIPPER", "CHARGEMENT", "ENLEVEMENT",
		},
		DeliveryMarkers: []string{
			"DELIVERY", "DESTINATION", "SHIP TO", "CONSIGNEE", "UNLOADING", "LIVRAISON",
			"DECHARGEMENT",
		},
		MarkerMode: MarkerWord,
		Window:     DefaultWindow,
		BackWindow: DefaultBackWindow,
		Strict:     true,
		MaxStops:   DefaultMaxStops,
	}
}

func (p Profile) normalized() Profile {
	if p.Window == 0 {
		p.Window = DefaultWindow
	}
	p.Window = min(max(p.Window, minWindow), maxWindow)
	if p.BackWindow <= 0 {
		p.BackWindow = DefaultBackWindow
	}
	if p.MaxStops <= 0 {
		p.MaxStops = DefaultMaxStops
	}
	if p.CustomerWindow <= 0 {
		p.CustomerWindow = DefaultCustomerWindow
	}
	if p.CommentKeywords == nil {
		p.CommentKeywords = patterns.CommentKeywords
	}
	if p.MinLooseFreight.IsZero() {
		p.MinLooseFreight = decimal.NewFromInt(100)
	}
	return p
}

// Hooks let a template override or extend single extraction steps. Every
// hook is optional.
type Hooks struct {
	// Customer replaces the default legal-suffix customer search.
	Customer func(lines []string, r patterns.AddressResolver) (order.Address, bool)
	// StopNote turns a line of a stop window into the stop's address
	// comment.
	StopNote func(company, line string) (string, bool)
	// Notes contributes synthesized comment fragments.
	Notes func(lines []string) []string
}

// Result is the outcome of one extraction.
type Result struct {
	Template   string           `json:"template"`
	Payload    order.Payload    `json:"payload"`
	Provenance order.Provenance `json:"provenance"`
	Lines      int              `json:"lines"`
}

// Engine extracts payloads for one profile.
type Engine struct {
	profile  Profile
	hooks    Hooks
	resolver patterns.AddressResolver
	temporal patterns.Temporal
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks installs template hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithCountries replaces the built-in gazetteer.
func WithCountries(l gazetteer.Lookup) Option {
	return func(e *Engine) { e.resolver.Countries = l }
}

// WithLocation sets the zone timestamps are rendered in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.temporal.Location = loc }
}

// WithLogger enables diagnostic output at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine for profile.
func New(profile Profile, opts ...Option) *Engine {
	e := &Engine{
		profile: profile.normalized(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the profile name.
func (e *Engine) Name() string { return e.profile.Name }

// Profile returns the normalised profile.
func (e *Engine) Profile() Profile { return e.profile }

// Extract runs the engine over a document.
func (e *Engine) Extract(doc *document.Document) *Result {
	return e.ExtractLines(doc.Lines, doc.Filename)
}

// ExtractLines runs the engine over raw lines. It never fails: anything it
// cannot find is omitted or replaced by a placeholder.
func (e *Engine) ExtractLines(raw []string, filename string) *Result {
	lines := patterns.NormalizeLines(raw)
	prov := order.Provenance{}
	e.logger.Debug("extract", "template", e.profile.Name, "lines", len(lines), "filename", filename)

	var refValue string
	var refPriority int
	if c, ok := e.resolveReference(lines, filename); ok {
		refValue, refPriority = c.Value, c.Priority
		e.logger.Debug("reference", "value", c.Value, "rule", c.Rule, "line", c.Line)
	}

	freight := e.extractFreight(lines)
	e.logger.Debug("freight", "amount", freight.Amount, "currency", freight.Currency, "source", freight.Source)

	stops := e.extractStops(lines)
	customer, customerOK := e.extractCustomer(lines, stops.claimed)
	if len(stops.loading)+len(stops.delivery) == 0 {
		stops = e.heuristicStops(lines, stops.claimed)
	}
	e.logger.Debug("stops", "loading", len(stops.loading), "delivery", len(stops.delivery), "source", stops.source)

	cargos := e.extractCargo(lines)
	comment := e.extractComment(lines, refValue)

	p := assemble(assembly{
		filename:    filename,
		reference:   refValue,
		refPriority: refPriority,
		freight:     freight,
		customer:    customer,
		customerOK:  customerOK,
		stops:       stops,
		cargos:      cargos,
		comment:     comment,
	}, prov)

	return &Result{
		Template:   e.profile.Name,
		Payload:    p,
		Provenance: prov,
		Lines:      len(lines),
	}
}

func (e *Engine) resolveReference(lines []string, filename string) (patterns.Candidate[string], bool) {
	cands := patterns.CollectReferences(lines, filename, e.referenceRules())
	if p := e.profile.FilenameReference; p != nil && filename != "" {
		if m := p.FindStringSubmatch(filepath.Base(filename)); m != nil {
			cands.Add(strings.ToUpper(m[len(m)-1]), patterns.RefPriorityOrder, len(lines), "filename")
		}
	}
	return cands.Best()
}

func (e *Engine) referenceRules() []patterns.ReferenceRule {
	rules := make([]patterns.ReferenceRule, 0, len(e.profile.ReferenceRules)+len(patterns.GenericReferenceRules))
	rules = append(rules, e.profile.ReferenceRules...)
	return append(rules, patterns.GenericReferenceRules...)
}

func attachmentNames(filename string) []string {
	if filename == "" {
		return []string{}
	}
	return []string{filepath.Base(filename)}
}
