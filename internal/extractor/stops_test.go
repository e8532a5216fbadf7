package extractor

import (
	"reflect"
	"testing"

	"booking_parser/internal/order"
)

func TestMarkerAt(t *testing.T) {
	e := New(GenericProfile())
	tests := []struct {
		line     string
		wantRole Role
		wantRest string
		wantOK   bool
	}{
		{"LOADING: ACME FACTORY", RoleLoading, "ACME FACTORY", true},
		{"Delivery address", RoleDelivery, "address", true},
		{"Place of delivery: Beta Ltd", RoleDelivery, "Beta Ltd", true},
		{"1. PICK-UP", RoleLoading, "", true},
		{"SHIP TO / CONSIGNEE", RoleDelivery, "CONSIGNEE", true},
		{"ACME LOGISTICS LTD DELIVERY SERVICES", 0, "", false},
		{"Delivery note must be signed", 0, "", false},
		{"Delivery price: EUR 200", 0, "", false},
		{"UNLOADING 27/06", RoleDelivery, "27/06", true},
		{"RELOADING", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			role, rest, ok := e.markerAt(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("markerAt(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if ok && (role != tt.wantRole || rest != tt.wantRest) {
				t.Errorf("markerAt(%q) = %v %q, want %v %q", tt.line, role, rest, tt.wantRole, tt.wantRest)
			}
		})
	}
}

func TestMarkerAtPrefixTrailer(t *testing.T) {
	e := New(Profile{
		Name:            "prefix",
		LoadingMarkers:  []string{"Collection"},
		DeliveryMarkers: []string{"Delivery"},
		MarkerMode:      MarkerPrefix,
		HeaderTrailers:  []string{"REF"},
		RequireTrailer:  true,
	})

	role, rest, ok := e.markerAt("Collection ACME FACTORY REF")
	if !ok || role != RoleLoading || rest != "ACME FACTORY" {
		t.Errorf("got %v %q %v", role, rest, ok)
	}
	if _, _, ok := e.markerAt("Delivery to any address other than listed is prohibited"); ok {
		t.Error("prose line accepted as a delivery header")
	}
	if _, _, ok := e.markerAt("Our Collection ACME REF"); ok {
		t.Error("prefix marker matched mid-line")
	}
}

func TestStrictDropsEmptyStops(t *testing.T) {
	e := New(GenericProfile())
	res := e.ExtractLines([]string{
		"LOADING:",
		"some text",
		"DELIVERY: BETA LTD",
		"SS17 9FJ STANFORD LE HOPE",
	}, "")

	if res.Provenance[order.FieldLoading] != order.SourceDefault {
		t.Errorf("loading source = %q, want default", res.Provenance[order.FieldLoading])
	}
	want := []order.Stop{{CompanyAddress: order.Address{
		Company:    "BETA LTD",
		City:       "STANFORD LE HOPE",
		PostalCode: "SS17 9FJ",
		Country:    "GB",
	}}}
	if !reflect.DeepEqual(res.Payload.DestinationLocations, want) {
		t.Errorf("DestinationLocations = %+v, want %+v", res.Payload.DestinationLocations, want)
	}
}

func TestHeuristicStops(t *testing.T) {
	lines := []string{
		"ACME LOGISTICS LTD",
		"5 HIGH STREET",
		"SW1A 1AA LONDON",
		"ALPHA PLANT",
		"12 RUE DE PARIS",
		"75001 PARIS",
		"BETA WAREHOUSE",
		"LONDON GATEWAY LOGISTICS PARK",
		"SS17 9FJ STANFORD LE HOPE",
	}
	res := New(GenericProfile()).ExtractLines(lines, "")
	p := res.Payload

	if p.Customer.Details.Company != "ACME LOGISTICS LTD" {
		t.Errorf("customer = %+v", p.Customer.Details)
	}
	wantLoading := []order.Stop{{CompanyAddress: order.Address{
		Company:       "ALPHA PLANT",
		StreetAddress: "12 RUE DE PARIS",
		City:          "PARIS",
		PostalCode:    "75001",
		Country:       "FR",
	}}}
	if !reflect.DeepEqual(p.LoadingLocations, wantLoading) {
		t.Errorf("LoadingLocations = %+v, want %+v", p.LoadingLocations, wantLoading)
	}
	if len(p.DestinationLocations) != 1 || p.DestinationLocations[0].CompanyAddress.Company != "BETA WAREHOUSE" {
		t.Errorf("DestinationLocations = %+v", p.DestinationLocations)
	}
	if res.Provenance[order.FieldLoading] != order.SourceHeuristic {
		t.Errorf("loading source = %q", res.Provenance[order.FieldLoading])
	}
	if p.FreightPrice != 0 {
		t.Errorf("FreightPrice = %v, postcode read as price", p.FreightPrice)
	}
}

func TestMaxStops(t *testing.T) {
	var lines []string
	for _, name := range []string{"ALPHA", "BRAVO", "CHARLIE"} {
		lines = append(lines, "DELIVERY: "+name+" DEPOT", "27/06/2025 10:00")
	}
	p := New(GenericProfile()).ExtractLines(lines, "").Payload
	if len(p.DestinationLocations) != DefaultMaxStops {
		t.Fatalf("got %d stops, want %d", len(p.DestinationLocations), DefaultMaxStops)
	}
	if got := p.DestinationLocations[1].CompanyAddress.Company; got != "BRAVO DEPOT" {
		t.Errorf("second stop = %q, want document order", got)
	}
}

func TestDedupStops(t *testing.T) {
	window := &order.TimeWindow{DatetimeFrom: "2025-06-27T08:00:00+00:00"}
	stops := []order.Stop{
		{CompanyAddress: order.Address{Company: "ACME LTD", PostalCode: "SS17 9FJ"}, Time: window},
		{CompanyAddress: order.Address{Company: "Acme Limited", PostalCode: "SS179FJ", City: "STANFORD"}, Time: window},
		{CompanyAddress: order.Address{Company: "ACME", PostalCode: "SS17 9FJ"}},
		{CompanyAddress: order.Address{Company: "BETA", PostalCode: "SS17 9FJ"}, Time: window},
	}

	once := DedupStops(stops)
	if len(once) != 3 {
		t.Fatalf("DedupStops kept %d stops, want 3: %+v", len(once), once)
	}
	if once[0].CompanyAddress.Company != "ACME LTD" {
		t.Errorf("first occurrence not kept: %+v", once[0])
	}
	if twice := DedupStops(once); !reflect.DeepEqual(once, twice) {
		t.Errorf("DedupStops not idempotent: %+v then %+v", once, twice)
	}
	if got := DedupStops(nil); got != nil {
		t.Errorf("DedupStops(nil) = %v", got)
	}
}
