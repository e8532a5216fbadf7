package templates

import (
	"testing"

	"booking_parser/internal/document"
	"booking_parser/internal/registry"
)

func TestDispatch(t *testing.T) {
	reg := registry.Default()
	reg.Sort()

	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "ziegler",
			lines: []string{"ZIEGLER UK LTD", "BOOKING INSTRUCTION", "Ziegler Ref 187395"},
			want:  "ziegler",
		},
		{
			name:  "transalliance",
			lines: []string{"TRANSALLIANCE", "CHARTERING CONFIRMATION", "REF.: 1714403", "EUR 900"},
			want:  "transalliance",
		},
		{
			name:  "unknown layout",
			lines: []string{"ACME LOGISTICS LTD", "Rate: EUR 100"},
			want:  "generic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.New("", tt.lines)
			res := reg.Dispatch(doc)
			if res == nil {
				t.Fatal("Dispatch() = nil")
			}
			if doc.Template != tt.want || res.Template != tt.want {
				t.Errorf("template = %q/%q, want %q", doc.Template, res.Template, tt.want)
			}
		})
	}
}

func TestRegistered(t *testing.T) {
	reg := registry.Default()
	for _, name := range []string{"generic", "transalliance", "ziegler"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("template %q not registered", name)
		}
	}
	if got := reg.TemplateCount(); got != 3 {
		t.Errorf("TemplateCount() = %d, want 3", got)
	}
}
