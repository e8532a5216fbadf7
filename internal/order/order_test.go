package order

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAddressMerge(t *testing.T) {
	a := Address{Company: "ACME", City: "PARIS"}
	b := Address{Company: "OTHER", PostalCode: "75001", City: "LYON"}

	got := a.Merge(b)
	if got.Company != "ACME" || got.City != "PARIS" {
		t.Errorf("existing fields overwritten: %+v", got)
	}
	if got.PostalCode != "75001" {
		t.Errorf("PostalCode = %q, want 75001", got.PostalCode)
	}
}

func TestStopKey(t *testing.T) {
	s := Stop{
		CompanyAddress: Address{Company: "Acme", PostalCode: "75001"},
		Time:           &TimeWindow{DatetimeFrom: "2025-06-27T08:00:00+00:00"},
	}
	if got, want := s.Key(), "acme|75001|2025-06-27t08:00:00+00:00|"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if got, want := (Stop{}).Key(), "|||"; got != want {
		t.Errorf("empty Key() = %q, want %q", got, want)
	}
}

func TestCargoMerge(t *testing.T) {
	c := Cargo{PackageCount: Ptr(10)}
	o := Cargo{PackageCount: Ptr(3), Weight: Ptr(1200.0), Title: "Paper"}

	got := c.Merge(o)
	if *got.PackageCount != 10 {
		t.Errorf("PackageCount = %d, want 10", *got.PackageCount)
	}
	if got.Weight == nil || *got.Weight != 1200 {
		t.Errorf("Weight = %v, want 1200", got.Weight)
	}
	if got.Title != "Paper" {
		t.Errorf("Title = %q, want Paper", got.Title)
	}
	if (Cargo{}).IsZero() != true || got.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestEmptyAddressMarshalsToObject(t *testing.T) {
	b, err := json.Marshal(Stop{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"company_address":{}}` {
		t.Errorf("got %s", b)
	}
}

func validPayload() *Payload {
	return &Payload{
		AttachmentFilenames:  []string{},
		Customer:             Customer{Side: CustomerSideNone},
		OrderReference:       PlaceholderReference,
		FreightPrice:         0,
		FreightCurrency:      DefaultCurrency,
		LoadingLocations:     []Stop{{}},
		DestinationLocations: []Stop{{}},
		Cargos:               []Cargo{{Title: GenericCargoTitle, PackageCount: Ptr(1)}},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validPayload()); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(p *Payload)
	}{
		{"empty reference", func(p *Payload) { p.OrderReference = "" }},
		{"no loading", func(p *Payload) { p.LoadingLocations = nil }},
		{"no destination", func(p *Payload) { p.DestinationLocations = []Stop{} }},
		{"no cargo", func(p *Payload) { p.Cargos = nil }},
		{"cargo without title", func(p *Payload) { p.Cargos = []Cargo{{}} }},
		{"bad currency", func(p *Payload) { p.FreightCurrency = "euro" }},
		{"negative price", func(p *Payload) { p.FreightPrice = -1 }},
		{"bad country", func(p *Payload) { p.LoadingLocations[0].CompanyAddress.Country = "France" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(p)
			err := Validate(p)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("err = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestProvenance(t *testing.T) {
	p := Provenance{}
	p.Set(FieldReference, SourceDefault)
	p.Set(FieldReference, SourceExplicit)
	p.Set(FieldPrice, SourceExplicit)

	if p[FieldReference] != SourceDefault {
		t.Errorf("first Set should win, got %q", p[FieldReference])
	}
	if d := p.Defaulted(); len(d) != 1 || d[0] != FieldReference {
		t.Errorf("Defaulted() = %v", d)
	}
	if m := p.Missing(); len(m) != len(Fields)-2 {
		t.Errorf("Missing() = %v", m)
	}
}
