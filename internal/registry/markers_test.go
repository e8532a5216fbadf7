package registry

import "testing"

func TestMarkerSet(t *testing.T) {
	m := MarkerSet{
		Hard:    []string{"TRANSALLIANCE", "FUSM"},
		MinHard: 2,
		Soft:    [][]string{{"REF", "ORDER"}, {"EUR", "GBP"}},
		MinSoft: 2,
	}

	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"both thresholds", []string{"Transalliance TS Ltd", "FUSM0001714403", "REF.: 1714403", "Price 900 EUR"}, true},
		{"one hard line", []string{"TRANSALLIANCE FUSM", "REF 1", "EUR 900"}, false},
		{"no soft", []string{"TRANSALLIANCE", "TRANSALLIANCE"}, false},
		{"soft group counted once per line", []string{"TRANSALLIANCE", "FUSM", "REF ORDER"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Check(tt.lines); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkerSetHeadAndTrace(t *testing.T) {
	m := MarkerSet{Hard: []string{"ZIEGLER UK LTD"}, MinHard: 1, Soft: [][]string{{"BOOKING", "ORDER"}}, MinSoft: 1, Head: 2}

	tr := m.Trace("ziegler", []string{"Ziegler UK Ltd", "Booking instruction"})
	if !tr.Matched || tr.TemplateName != "ziegler" {
		t.Fatalf("Trace() = %+v", tr)
	}
	if !tr.Markers[0].Hard || !tr.Markers[0].Matched || tr.Markers[0].Line != 0 {
		t.Errorf("hard marker trace = %+v", tr.Markers[0])
	}
	if !tr.Markers[1].Matched || tr.Markers[1].Line != 1 {
		t.Errorf("soft marker trace = %+v", tr.Markers[1])
	}

	if m.Check([]string{"Ziegler UK Ltd", "x", "Booking"}) {
		t.Error("marker beyond head counted")
	}
	if tr := m.Trace("ziegler", []string{"Booking"}); tr.QuickCheck.Reason == "" {
		t.Error("missing reason on failed check")
	}
}
