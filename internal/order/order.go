// Package order defines the normalized order record produced from a booking
// confirmation, in the shape expected by the order intake schema.
package order

import "strings"

// Address is a postal address with optional contact details. Every field is
// optional; an empty Address marshals to {}.
type Address struct {
	Company       string `json:"company,omitempty"`
	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country,omitempty"`
	VATCode       string `json:"vat_code,omitempty"`
	Email         string `json:"email,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

// IsZero reports whether no field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Merge fills the empty fields of a with the values of b. Fields already set
// on a are kept.
func (a Address) Merge(b Address) Address {
	a.Company = first(a.Company, b.Company)
	a.StreetAddress = first(a.StreetAddress, b.StreetAddress)
	a.City = first(a.City, b.City)
	a.PostalCode = first(a.PostalCode, b.PostalCode)
	a.Country = first(a.Country, b.Country)
	a.VATCode = first(a.VATCode, b.VATCode)
	a.Email = first(a.Email, b.Email)
	a.ContactPerson = first(a.ContactPerson, b.ContactPerson)
	a.Comment = first(a.Comment, b.Comment)
	return a
}

// TimeWindow is a scheduled slot. DatetimeTo is only set when an explicit end
// time was found.
type TimeWindow struct {
	DatetimeFrom string `json:"datetime_from"`
	DatetimeTo   string `json:"datetime_to,omitempty"`
}

// Stop is a single loading or delivery location.
type Stop struct {
	CompanyAddress Address     `json:"company_address"`
	Time           *TimeWindow `json:"time,omitempty"`
}

// Key is the deduplication identity of a stop.
func (s Stop) Key() string {
	var from, to string
	if s.Time != nil {
		from, to = s.Time.DatetimeFrom, s.Time.DatetimeTo
	}
	return strings.ToLower(s.CompanyAddress.Company + "|" + s.CompanyAddress.PostalCode + "|" + from + "|" + to)
}

// Package types.
const (
	PackagePallet  = "pallet"
	PackageEPAL    = "epal"
	PackageCarton  = "carton"
	PackageBox     = "box"
	PackageCrate   = "crate"
	PackageDrum    = "drum"
	PackageBag     = "bag"
	PackageRoll    = "roll"
	PackagePackage = "package"
)

// Cargo shipment types.
const (
	CargoFTL = "FTL"
	CargoLTL = "LTL"
)

// Cargo is a flexible bag of shipment attributes. Title is always set on
// assembled payloads.
type Cargo struct {
	Title          string   `json:"title"`
	Type           string   `json:"type,omitempty"`
	PackageCount   *int     `json:"package_count,omitempty"`
	PackageType    string   `json:"package_type,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	LDM            *float64 `json:"ldm,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`
	Value          *float64 `json:"value,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	PkgLength      *float64 `json:"pkg_length,omitempty"`
	PkgWidth       *float64 `json:"pkg_width,omitempty"`
	PkgHeight      *float64 `json:"pkg_height,omitempty"`
	TemperatureMin *float64 `json:"temperature_min,omitempty"`
	TemperatureMax *float64 `json:"temperature_max,omitempty"`
	ADR            *bool    `json:"adr,omitempty"`
	Palletized     *bool    `json:"palletized,omitempty"`
	Lift           *bool    `json:"lift,omitempty"`
	ManualLoad     *bool    `json:"manual_load,omitempty"`
}

// IsZero reports whether no attribute was captured.
func (c Cargo) IsZero() bool {
	return c.Title == "" && c.Type == "" && c.PackageCount == nil && c.PackageType == "" &&
		c.Weight == nil && c.LDM == nil && c.Volume == nil && c.Value == nil && c.Currency == "" &&
		c.PkgLength == nil && c.PkgWidth == nil && c.PkgHeight == nil &&
		c.TemperatureMin == nil && c.TemperatureMax == nil &&
		c.ADR == nil && c.Palletized == nil && c.Lift == nil && c.ManualLoad == nil
}

// Merge keeps every attribute already set on c and takes the rest from o.
func (c Cargo) Merge(o Cargo) Cargo {
	c.Title = first(c.Title, o.Title)
	c.Type = first(c.Type, o.Type)
	c.PackageType = first(c.PackageType, o.PackageType)
	c.Currency = first(c.Currency, o.Currency)
	c.PackageCount = firstPtr(c.PackageCount, o.PackageCount)
	c.Weight = firstPtr(c.Weight, o.Weight)
	c.LDM = firstPtr(c.LDM, o.LDM)
	c.Volume = firstPtr(c.Volume, o.Volume)
	c.Value = firstPtr(c.Value, o.Value)
	c.PkgLength = firstPtr(c.PkgLength, o.PkgLength)
	c.PkgWidth = firstPtr(c.PkgWidth, o.PkgWidth)
	c.PkgHeight = firstPtr(c.PkgHeight, o.PkgHeight)
	c.TemperatureMin = firstPtr(c.TemperatureMin, o.TemperatureMin)
	c.TemperatureMax = firstPtr(c.TemperatureMax, o.TemperatureMax)
	c.ADR = firstPtr(c.ADR, o.ADR)
	c.Palletized = firstPtr(c.Palletized, o.Palletized)
	c.Lift = firstPtr(c.Lift, o.Lift)
	c.ManualLoad = firstPtr(c.ManualLoad, o.ManualLoad)
	return c
}

// Customer wraps the ordering party. Side is always "none" for booking
// confirmations.
type Customer struct {
	Side    string  `json:"side"`
	Details Address `json:"details"`
}

// Payload is the root order record.
type Payload struct {
	AttachmentFilenames  []string `json:"attachment_filenames"`
	Customer             Customer `json:"customer"`
	OrderReference       string   `json:"order_reference"`
	FreightPrice         float64  `json:"freight_price"`
	FreightCurrency      string   `json:"freight_currency"`
	LoadingLocations     []Stop   `json:"loading_locations"`
	DestinationLocations []Stop   `json:"destination_locations"`
	Cargos               []Cargo  `json:"cargos"`
	Comment              string   `json:"comment,omitempty"`
}

// Placeholders used when extraction finds nothing.
const (
	PlaceholderReference = "UNKNOWN-REF"
	DefaultCurrency      = "EUR"
	GenericCargoTitle    = "General cargo"
	CustomerSideNone     = "none"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

func first(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPtr[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}
