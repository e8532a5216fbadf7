package patterns

import (
	"reflect"
	"testing"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Collection   ACME  ", "Collection ACME"},
		{"08:00 – 12:00", "08:00 - 12:00"},
		{"Livraison 8h00 — 12h30", "Livraison 08:00 - 12:30"},
		{"Price € 1.250,50", "Price € 1.250,50"},
		{"tab\tseparated", "tab separated"},
		{"\ufeffHeader", "Header"},
		{"Cafe\u0301", "Caf\u00e9"},
		{"99h99 stays", "99h99 stays"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeLine(tt.in); got != tt.want {
				t.Errorf("NormalizeLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeLines(t *testing.T) {
	got := NormalizeLines([]string{"first\nsecond", "   ", "", "third\r\n"})
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeLines() = %v, want %v", got, want)
	}

	if got := NormalizeLines(nil); len(got) != 0 {
		t.Errorf("NormalizeLines(nil) = %v, want empty", got)
	}
}
