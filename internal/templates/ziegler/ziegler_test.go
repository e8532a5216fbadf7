package ziegler

import (
	"reflect"
	"testing"

	"booking_parser/internal/document"
	"booking_parser/internal/order"
	"booking_parser/internal/patterns"
)

var booking = []string{
	"ZIEGLER UK LTD",
	"BOOKING INSTRUCTION",
	"Carrier Test_Client",
	"Date 23/06/2025",
	"Ziegler Ref 187395",
	"Rate € 1,000",
	"Collection ACME FOODS REF",
	"REF 12345",
	"1 LONG ROAD",
	"IP14 2QU STOWMARKET",
	"10 PALLETS",
	"Delivery BETA STORES REF",
	"BOOKED FOR 25/06",
	"12 RUE DE PARIS",
	"95150 TAVERNY",
	"5 PALLETS",
	"Delivery to any address other than listed is prohibited without permission.",
	"Please quote our reference number on your invoice.",
}

func TestQuickCheck(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"booking", booking, true},
		{"no company", []string{"BOOKING INSTRUCTION", "Collection ACME REF"}, false},
		{"no booking word", []string{"ZIEGLER UK LTD", "Invoice 123"}, false},
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
	res := New().Extract(document.New("booking.pdf", booking))
	p := res.Payload

	if res.Template != "ziegler" {
		t.Errorf("Template = %q, want ziegler", res.Template)
	}
	if p.OrderReference != "187395" {
		t.Errorf("OrderReference = %q, want 187395", p.OrderReference)
	}
	if p.FreightPrice != 1000 || p.FreightCurrency != "EUR" {
		t.Errorf("freight = %v %s, want 1000 EUR", p.FreightPrice, p.FreightCurrency)
	}

	wantCustomer := order.Address{
		Company:       "ZIEGLER UK LTD",
		StreetAddress: knownAddress.StreetAddress,
		City:          "STANFORD LE HOPE",
		PostalCode:    "SS17 9FJ",
		Country:       "GB",
		Comment:       "Please quote our reference on invoice.",
	}
	if p.Customer.Details != wantCustomer {
		t.Errorf("Customer = %+v, want %+v", p.Customer.Details, wantCustomer)
	}

	if len(p.LoadingLocations) != 1 || len(p.DestinationLocations) != 1 {
		t.Fatalf("stops = %d/%d, want 1/1", len(p.LoadingLocations), len(p.DestinationLocations))
	}
	load := p.LoadingLocations[0].CompanyAddress
	if load.Company != "ACME FOODS" || load.Comment != "ACME FOODS REF 12345" {
		t.Errorf("loading = %+v", load)
	}
	dest := p.DestinationLocations[0].CompanyAddress
	if dest.Company != "BETA STORES" || dest.Comment != "BOOKED FOR 25/06" {
		t.Errorf("delivery = %+v", dest)
	}

	if len(p.Cargos) != 2 {
		t.Fatalf("got %d cargos, want 2", len(p.Cargos))
	}
	for i, want := range []int{10, 5} {
		c := p.Cargos[i]
		if c.PackageCount == nil || *c.PackageCount != want || c.Title != "Palletized goods" {
			t.Errorf("cargo %d = %+v, want %d pallets", i, c, want)
		}
	}

	wantComment := "Carrier: Test_Client. Booking created on 23/06/2025. " + restrictionNote + "."
	if p.Comment != wantComment {
		t.Errorf("Comment = %q, want %q", p.Comment, wantComment)
	}
	if got := p.AttachmentFilenames; !reflect.DeepEqual(got, []string{"booking.pdf"}) {
		t.Errorf("AttachmentFilenames = %v", got)
	}
}

func TestCustomerPartialHeader(t *testing.T) {
	lines := []string{
		"ZIEGLER UK LTD",
		"UNIT 5 NORTH ROAD",
		"TELEPHONE 01375 123456",
		"SOMETHING ELSE",
	}
	got, ok := customer(lines, patterns.AddressResolver{})
	if !ok {
		t.Fatal("customer not found")
	}
	want := order.Address{
		Company:       "ZIEGLER UK LTD",
		StreetAddress: "UNIT 5 NORTH ROAD",
		City:          "STANFORD LE HOPE",
		PostalCode:    "SS17 9FJ",
		Country:       "GB",
	}
	if got != want {
		t.Errorf("customer = %+v, want %+v", got, want)
	}
}

func TestCustomerTermsOnly(t *testing.T) {
	lines := []string{
		"Subject to purchase order terms and conditions",
		"Please quote our reference number on all invoices",
	}
	got, ok := customer(lines, patterns.AddressResolver{})
	if !ok {
		t.Fatal("customer not found")
	}
	want := "Ziegler purchase order terms apply. Please quote our reference on invoice."
	if got.Company != "" || got.Comment != want {
		t.Errorf("customer = %+v, want comment %q", got, want)
	}
}

func TestStopNote(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"REF abc12", "ACME REF ABC12", true},
		{"BOOKED FOR 25/06 AM", "BOOKED FOR 25/06", true},
		{"1 LONG ROAD", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := stopNote("ACME", tt.line)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("stopNote() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
