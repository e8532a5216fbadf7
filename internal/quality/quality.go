// Package quality scores extraction results from their field provenance.
// Scores feed the -stats summary, the API response and the stored order
// row so weak extractions can be routed to manual review.
package quality

import (
	"sort"

	"booking_parser/internal/extractor"
	"booking_parser/internal/order"
)

// Weights per source. A missing optional field scores like a default.
var weights = map[order.Source]float64{
	order.SourceExplicit:  1.0,
	order.SourceHeuristic: 0.6,
	order.SourceFallback:  0.3,
	order.SourceDefault:   0,
}

// Fields that carry more weight in the score.
var fieldWeight = map[string]float64{
	order.FieldReference:   2,
	order.FieldPrice:       2,
	order.FieldCurrency:    0.5,
	order.FieldCustomer:    1,
	order.FieldLoading:     2,
	order.FieldDestination: 2,
	order.FieldCargos:      1,
	order.FieldComment:     0.5,
}

// ReviewThreshold is the confidence below which a result needs review.
const ReviewThreshold = 0.5

// Report summarises one extraction.
type Report struct {
	Template    string   `json:"template"`
	Reference   string   `json:"order_reference"`
	Confidence  float64  `json:"confidence"`
	NeedsReview bool     `json:"needs_review"`
	Defaulted   []string `json:"defaulted,omitempty"`
	Missing     []string `json:"missing,omitempty"`
	Loading     int      `json:"loading_stops"`
	Delivery    int      `json:"delivery_stops"`
	Cargos      int      `json:"cargos"`
}

// Assess scores res. Returns nil for a nil result.
func Assess(res *extractor.Result) *Report {
	if res == nil {
		return nil
	}
	conf := Confidence(res.Provenance)
	return &Report{
		Template:    res.Template,
		Reference:   res.Payload.OrderReference,
		Confidence:  conf,
		NeedsReview: conf < ReviewThreshold,
		Defaulted:   res.Provenance.Defaulted(),
		Missing:     res.Provenance.Missing(),
		Loading:     len(res.Payload.LoadingLocations),
		Delivery:    len(res.Payload.DestinationLocations),
		Cargos:      len(res.Payload.Cargos),
	}
}

// Confidence is the weighted share of explicit evidence, in [0, 1].
func Confidence(p order.Provenance) float64 {
	var total, got float64
	for _, f := range order.Fields {
		w := fieldWeight[f]
		total += w
		if src, ok := p[f]; ok {
			got += w * weights[src]
		}
	}
	if total == 0 {
		return 0
	}
	return float64(int(got/total*1000+0.5)) / 1000
}

// Stats aggregates reports over a batch.
type Stats struct {
	Documents   int            `json:"documents"`
	NeedsReview int            `json:"needs_review"`
	ByTemplate  map[string]int `json:"by_template"`
	Defaulted   map[string]int `json:"defaulted"`
	confidence  float64
}

// NewStats creates an empty aggregate.
func NewStats() *Stats {
	return &Stats{ByTemplate: map[string]int{}, Defaulted: map[string]int{}}
}

// Add folds r into s.
func (s *Stats) Add(r *Report) {
	if r == nil {
		return
	}
	s.Documents++
	s.ByTemplate[r.Template]++
	for _, f := range r.Defaulted {
		s.Defaulted[f]++
	}
	if r.NeedsReview {
		s.NeedsReview++
	}
	s.confidence += r.Confidence
}

// MeanConfidence is the average confidence of every added report.
func (s *Stats) MeanConfidence() float64 {
	if s.Documents == 0 {
		return 0
	}
	return s.confidence / float64(s.Documents)
}

// Templates returns the template names seen, most frequent first.
func (s *Stats) Templates() []string {
	names := make([]string, 0, len(s.ByTemplate))
	for n := range s.ByTemplate {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.ByTemplate[names[i]] != s.ByTemplate[names[j]] {
			return s.ByTemplate[names[i]] > s.ByTemplate[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
