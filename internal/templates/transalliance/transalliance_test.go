package transalliance

import (
	"strings"
	"testing"

	"booking_parser/internal/document"
	"booking_parser/internal/order"
)

var charter = []string{
	"TRANSALLIANCE TS LTD",
	"CHARTERING CONFIRMATION",
	"REF.: 1714403",
	"Shipping price EUR 1,000.00",
	"LOADING: EP GROUP",
	"12 RUE DE PARIS",
	"75001 PARIS",
	"DELIVERY: ICONEX",
	"1 LONG ROAD",
	"IP14 2QU STOWMARKET",
	"26 PALLETS",
	"Pallet exchange required",
}

func TestQuickCheck(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"charter", charter, true},
		{"one hard marker", []string{"TRANSALLIANCE", "ORDER 123", "EUR 10"}, false},
		{"no soft markers", []string{"TRANSALLIANCE", "CHARTERING CONFIRMATION"}, false},
	}
	tmpl := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tmpl.QuickCheck(tt.lines); got != tt.want {
				t.Errorf("QuickCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	res := New().Extract(document.New("", charter))
	p := res.Payload

	if p.OrderReference != "1714403" {
		t.Errorf("OrderReference = %q, want 1714403", p.OrderReference)
	}
	if res.Provenance[order.FieldReference] != order.SourceExplicit {
		t.Errorf("reference source = %q, want explicit", res.Provenance[order.FieldReference])
	}
	if p.FreightPrice != 1000 || p.FreightCurrency != "EUR" {
		t.Errorf("freight = %v %s, want 1000 EUR", p.FreightPrice, p.FreightCurrency)
	}
	if p.Customer.Details.Company != "TRANSALLIANCE TS LTD" {
		t.Errorf("customer = %q", p.Customer.Details.Company)
	}
	if len(p.LoadingLocations) != 1 || p.LoadingLocations[0].CompanyAddress.Company != "EP GROUP" {
		t.Errorf("LoadingLocations = %+v", p.LoadingLocations)
	}
	if len(p.DestinationLocations) != 1 || p.DestinationLocations[0].CompanyAddress.Company != "ICONEX" {
		t.Errorf("DestinationLocations = %+v", p.DestinationLocations)
	}
	if !strings.HasPrefix(p.Comment, "Order Ref: 1714403 | ") || !strings.Contains(p.Comment, "Pallet exchange required") {
		t.Errorf("Comment = %q", p.Comment)
	}
}

func TestExtractFilenameReference(t *testing.T) {
	lines := []string{"TRANSALLIANCE", "CHARTERING CONFIRMATION", "EUR 500"}
	res := New().Extract(document.New("FUSM0001714403.pdf", lines))
	if got := res.Payload.OrderReference; got != "FUSM0001714403" {
		t.Errorf("OrderReference = %q, want FUSM0001714403", got)
	}
}
