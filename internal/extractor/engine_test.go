package extractor

import (
	"reflect"
	"testing"

	"booking_parser/internal/document"
	"booking_parser/internal/order"
)

var confirmation = []string{
	"BOOKING CONFIRMATION",
	"ACME LOGISTICS LTD",
	"5 HIGH STREET",
	"SW1A 1AA LONDON",
	"Rate: EUR 1,250.50",
	"LOADING: ACME FACTORY",
	"12 RUE DE PARIS",
	"75001 PARIS",
	"27/06/2025 08:00-12:00",
	"DELIVERY: BETA WAREHOUSE",
	"LONDON GATEWAY LOGISTICS PARK",
	"SS17 9FJ STANFORD LE HOPE",
	"10 PALLETS",
	"Please call the consignee before arrival",
}

func TestExtractConfirmation(t *testing.T) {
	e := New(GenericProfile())
	res := e.Extract(document.New("", confirmation))
	p := res.Payload

	if p.OrderReference != order.PlaceholderReference {
		t.Errorf("OrderReference = %q, want %q", p.OrderReference, order.PlaceholderReference)
	}
	if p.FreightPrice != 1250.50 || p.FreightCurrency != "EUR" {
		t.Errorf("freight = %v %s, want 1250.5 EUR", p.FreightPrice, p.FreightCurrency)
	}

	wantCustomer := order.Address{
		Company:       "ACME LOGISTICS LTD",
		StreetAddress: "5 HIGH STREET",
		City:          "LONDON",
		PostalCode:    "SW1A 1AA",
		Country:       "GB",
	}
	if p.Customer.Details != wantCustomer || p.Customer.Side != order.CustomerSideNone {
		t.Errorf("Customer = %+v, want %+v", p.Customer, wantCustomer)
	}

	wantLoading := []order.Stop{{
		CompanyAddress: order.Address{
			Company:       "ACME FACTORY",
			StreetAddress: "12 RUE DE PARIS",
			City:          "PARIS",
			PostalCode:    "75001",
			Country:       "FR",
		},
		Time: &order.TimeWindow{
			DatetimeFrom: "2025-06-27T08:00:00+00:00",
			DatetimeTo:   "2025-06-27T12:00:00+00:00",
		},
	}}
	if !reflect.DeepEqual(p.LoadingLocations, wantLoading) {
		t.Errorf("LoadingLocations = %+v, want %+v", p.LoadingLocations, wantLoading)
	}

	wantDelivery := []order.Stop{{
		CompanyAddress: order.Address{
			Company:       "BETA WAREHOUSE",
			StreetAddress: "LONDON GATEWAY LOGISTICS PARK",
			City:          "STANFORD LE HOPE",
			PostalCode:    "SS17 9FJ",
			Country:       "GB",
		},
	}}
	if !reflect.DeepEqual(p.DestinationLocations, wantDelivery) {
		t.Errorf("DestinationLocations = %+v, want %+v", p.DestinationLocations, wantDelivery)
	}

	if len(p.Cargos) != 1 {
		t.Fatalf("Cargos = %+v, want one cargo", p.Cargos)
	}
	c := p.Cargos[0]
	if c.Title != "Palletized goods" || c.PackageType != order.PackagePallet ||
		c.PackageCount == nil || *c.PackageCount != 10 || c.Palletized == nil || !*c.Palletized {
		t.Errorf("Cargo = %+v", c)
	}

	if p.Comment != "Please call the consignee before arrival" {
		t.Errorf("Comment = %q", p.Comment)
	}
	if len(p.AttachmentFilenames) != 0 || p.AttachmentFilenames == nil {
		t.Errorf("AttachmentFilenames = %#v, want empty non-nil", p.AttachmentFilenames)
	}

	wantProv := order.Provenance{
		order.FieldReference:   order.SourceDefault,
		order.FieldPrice:       order.SourceExplicit,
		order.FieldCurrency:    order.SourceExplicit,
		order.FieldCustomer:    order.SourceExplicit,
		order.FieldLoading:     order.SourceExplicit,
		order.FieldDestination: order.SourceExplicit,
		order.FieldCargos:      order.SourceExplicit,
		order.FieldComment:     order.SourceExplicit,
	}
	if !reflect.DeepEqual(res.Provenance, wantProv) {
		t.Errorf("Provenance = %v, want %v", res.Provenance, wantProv)
	}

	if err := order.Validate(&p); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestExtractScenarios(t *testing.T) {
	type stopWant struct {
		postcode, country, from, to string
	}
	tests := []struct {
		name     string
		lines    []string
		price    float64
		currency string
		loading  []stopWant
		delivery []stopWant
		count    int
		pkg      string
	}{
		{
			name: "collection and delivery headers",
			lines: []string{
				"ACME LOGISTICS LTD",
				"Rate € 1.250,50",
				"Collection ACME FACTORY",
				"12 RUE DE PARIS",
				"75001 PARIS",
				"27/06/2025 08:00 - 12:00",
				"Delivery BETA WAREHOUSE",
				"SS17 9FJ STANFORD LE HOPE",
				"10 PALLETS",
			},
			price:    1250.50,
			currency: "EUR",
			loading:  []stopWant{{"75001", "FR", "2025-06-27T08:00:00+00:00", "2025-06-27T12:00:00+00:00"}},
			delivery: []stopWant{{"SS17 9FJ", "GB", "", ""}},
			count:    10,
			pkg:      order.PackagePallet,
		},
		{
			name:     "empty",
			lines:    nil,
			currency: order.DefaultCurrency,
			loading:  []stopWant{{}},
			delivery: []stopWant{{}},
			count:    1,
		},
		{
			name:     "no markers",
			lines:    []string{"Hello", "nothing useful here"},
			currency: order.DefaultCurrency,
			loading:  []stopWant{{}},
			delivery: []stopWant{{}},
			count:    1,
		},
	}

	stopsMatch := func(got []order.Stop, want []stopWant) bool {
		if len(got) != len(want) {
			return false
		}
		for i, w := range want {
			a := got[i].CompanyAddress
			if a.PostalCode != w.postcode || a.Country != w.country {
				return false
			}
			var from, to string
			if tw := got[i].Time; tw != nil {
				from, to = tw.DatetimeFrom, tw.DatetimeTo
			}
			if w.from != "" && (from != w.from || to != w.to) {
				return false
			}
		}
		return true
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(GenericProfile()).ExtractLines(tt.lines, "").Payload

			if tt.price == 0 && p.OrderReference != order.PlaceholderReference {
				t.Errorf("OrderReference = %q, want placeholder", p.OrderReference)
			}
			if p.FreightPrice != tt.price || p.FreightCurrency != tt.currency {
				t.Errorf("freight = %v %s, want %v %s", p.FreightPrice, p.FreightCurrency, tt.price, tt.currency)
			}
			if !stopsMatch(p.LoadingLocations, tt.loading) {
				t.Errorf("LoadingLocations = %+v, want %+v", p.LoadingLocations, tt.loading)
			}
			if !stopsMatch(p.DestinationLocations, tt.delivery) {
				t.Errorf("DestinationLocations = %+v, want %+v", p.DestinationLocations, tt.delivery)
			}
			if len(p.Cargos) != 1 {
				t.Fatalf("Cargos = %+v, want one cargo", p.Cargos)
			}
			c := p.Cargos[0]
			if c.PackageCount == nil || *c.PackageCount != tt.count || c.PackageType != tt.pkg {
				t.Errorf("Cargo = %+v, want %d x %q", c, tt.count, tt.pkg)
			}
			if err := order.Validate(&p); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestExtractFallback(t *testing.T) {
	e := New(GenericProfile())
	res := e.ExtractLines([]string{"Hello", "nothing useful here"}, "scan.pdf")
	p := res.Payload

	if p.OrderReference != order.PlaceholderReference {
		t.Errorf("OrderReference = %q", p.OrderReference)
	}
	if p.FreightPrice != 0 || p.FreightCurrency != order.DefaultCurrency {
		t.Errorf("freight = %v %s", p.FreightPrice, p.FreightCurrency)
	}
	placeholder := []order.Stop{{CompanyAddress: order.Address{}}}
	if !reflect.DeepEqual(p.LoadingLocations, placeholder) || !reflect.DeepEqual(p.DestinationLocations, placeholder) {
		t.Errorf("stops = %+v / %+v, want placeholders", p.LoadingLocations, p.DestinationLocations)
	}
	wantCargo := []order.Cargo{{Title: order.GenericCargoTitle, PackageCount: order.Ptr(1)}}
	if !reflect.DeepEqual(p.Cargos, wantCargo) {
		t.Errorf("Cargos = %+v, want %+v", p.Cargos, wantCargo)
	}
	if !reflect.DeepEqual(p.AttachmentFilenames, []string{"scan.pdf"}) {
		t.Errorf("AttachmentFilenames = %v", p.AttachmentFilenames)
	}

	wantDefaulted := []string{
		order.FieldReference, order.FieldPrice, order.FieldCurrency,
		order.FieldLoading, order.FieldDestination, order.FieldCargos,
	}
	if got := res.Provenance.Defaulted(); !reflect.DeepEqual(got, wantDefaulted) {
		t.Errorf("Defaulted() = %v, want %v", got, wantDefaulted)
	}
	if err := order.Validate(&p); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestExtractAlwaysValid(t *testing.T) {
	inputs := map[string][]string{
		"nil":         nil,
		"blank":       {"", "   ", "\t"},
		"punctuation": {"----", "////", "€€€"},
		"dates only":  {"31/02/2025", "2025-13-45", "99:99"},
		"markers":     {"LOADING", "DELIVERY", "LOADING:", "DELIVERY:"},
		"confirmation": confirmation,
	}

	e := New(GenericProfile())
	for name, lines := range inputs {
		t.Run(name, func(t *testing.T) {
			p := e.ExtractLines(lines, "").Payload
			if p.OrderReference == "" || p.FreightCurrency == "" {
				t.Errorf("required fields empty: %+v", p)
			}
			if len(p.LoadingLocations) == 0 || len(p.DestinationLocations) == 0 || len(p.Cargos) == 0 {
				t.Errorf("required arrays empty: %+v", p)
			}
			if err := order.Validate(&p); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestExtractReferenceFromFilename(t *testing.T) {
	e := New(GenericProfile())
	res := e.ExtractLines([]string{"Hello"}, "/tmp/in/FUSM0001714403.pdf")
	if got := res.Payload.OrderReference; got != "FUSM0001714403" {
		t.Errorf("OrderReference = %q", got)
	}
	if res.Provenance[order.FieldReference] != order.SourceHeuristic {
		t.Errorf("reference source = %q", res.Provenance[order.FieldReference])
	}
	if !reflect.DeepEqual(res.Payload.AttachmentFilenames, []string{"FUSM0001714403.pdf"}) {
		t.Errorf("AttachmentFilenames = %v", res.Payload.AttachmentFilenames)
	}
}

func TestProfileNormalized(t *testing.T) {
	tests := []struct {
		window, want int
	}{
		{0, DefaultWindow},
		{2, minWindow},
		{12, 12},
		{50, maxWindow},
	}
	for _, tt := range tests {
		p := Profile{Window: tt.window}.normalized()
		if p.Window != tt.want {
			t.Errorf("Window %d normalized to %d, want %d", tt.window, p.Window, tt.want)
		}
		if p.MaxStops != DefaultMaxStops || p.BackWindow != DefaultBackWindow {
			t.Errorf("defaults not applied: %+v", p)
		}
	}
}
