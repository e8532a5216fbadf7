package quality

import (
	"reflect"
	"testing"

	"booking_parser/internal/extractor"
	"booking_parser/internal/order"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		prov order.Provenance
		want float64
	}{
		{"empty", order.Provenance{}, 0},
		{
			name: "all explicit",
			prov: order.Provenance{
				order.FieldReference: order.SourceExplicit, order.FieldPrice: order.SourceExplicit,
				order.FieldCurrency: order.SourceExplicit, order.FieldCustomer: order.SourceExplicit,
				order.FieldLoading: order.SourceExplicit, order.FieldDestination: order.SourceExplicit,
				order.FieldCargos: order.SourceExplicit, order.FieldComment: order.SourceExplicit,
			},
			want: 1,
		},
		{
			// 2 + 2*0.3 + 0.5*0.3 out of 11
			name: "reference and fallback price",
			prov: order.Provenance{
				order.FieldReference: order.SourceExplicit,
				order.FieldPrice:     order.SourceFallback,
				order.FieldCurrency:  order.SourceFallback,
				order.FieldLoading:   order.SourceDefault,
			},
			want: 0.25,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.prov); got != tt.want {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssess(t *testing.T) {
	if Assess(nil) != nil {
		t.Error("Assess(nil) != nil")
	}

	res := &extractor.Result{
		Template: "generic",
		Payload: order.Payload{
			OrderReference:   order.PlaceholderReference,
			LoadingLocations: []order.Stop{{}},
		},
		Provenance: order.Provenance{
			order.FieldReference: order.SourceDefault,
			order.FieldPrice:     order.SourceDefault,
			order.FieldCurrency:  order.SourceDefault,
			order.FieldLoading:   order.SourceDefault,
		},
	}
	r := Assess(res)
	if !r.NeedsReview || r.Confidence != 0 {
		t.Errorf("report = %+v, want review with zero confidence", r)
	}
	want := []string{order.FieldReference, order.FieldPrice, order.FieldCurrency, order.FieldLoading}
	if !reflect.DeepEqual(r.Defaulted, want) {
		t.Errorf("Defaulted = %v, want %v", r.Defaulted, want)
	}
	if r.Loading != 1 {
		t.Errorf("Loading = %d, want 1", r.Loading)
	}
}

func TestStats(t *testing.T) {
	s := NewStats()
	s.Add(&Report{Template: "ziegler", Confidence: 0.9})
	s.Add(&Report{Template: "generic", Confidence: 0.3, NeedsReview: true, Defaulted: []string{"order_reference"}})
	s.Add(&Report{Template: "ziegler", Confidence: 0.6})
	s.Add(nil)

	if s.Documents != 3 || s.NeedsReview != 1 {
		t.Errorf("Documents/NeedsReview = %d/%d, want 3/1", s.Documents, s.NeedsReview)
	}
	if got := s.Templates(); !reflect.DeepEqual(got, []string{"ziegler", "generic"}) {
		t.Errorf("Templates() = %v", got)
	}
	if s.Defaulted["order_reference"] != 1 {
		t.Errorf("Defaulted = %v", s.Defaulted)
	}
	if got := s.MeanConfidence(); got < 0.599 || got > 0.601 {
		t.Errorf("MeanConfidence() = %v, want 0.6", got)
	}
}
