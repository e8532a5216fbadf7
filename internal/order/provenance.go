package order

// Source records how a field value was obtained.
type Source string

const (
	SourceExplicit  Source = "explicit"  // Labelled value or section marker.
	SourceHeuristic Source = "heuristic" // Structural or positional guess.
	SourceFallback  Source = "fallback"  // Second, looser scan.
	SourceDefault   Source = "default"   // Placeholder synthesized to satisfy the schema.
)

// Payload field names used as provenance keys.
const (
	FieldReference   = "order_reference"
	FieldPrice       = "freight_price"
	FieldCurrency    = "freight_currency"
	FieldCustomer    = "customer"
	FieldLoading     = "loading_locations"
	FieldDestination = "destination_locations"
	FieldCargos      = "cargos"
	FieldComment     = "comment"
)

// Fields lists every provenance key in payload order.
var Fields = []string{
	FieldReference, FieldPrice, FieldCurrency, FieldCustomer,
	FieldLoading, FieldDestination, FieldCargos, FieldComment,
}

// Provenance maps payload field names to their Source. A missing key means
// the optional field was not found.
type Provenance map[string]Source

// Set records src for field, keeping the first value recorded.
func (p Provenance) Set(field string, src Source) {
	if _, ok := p[field]; ok {
		return
	}
	p[field] = src
}

// Defaulted lists the fields whose value is a synthesized placeholder.
func (p Provenance) Defaulted() []string {
	var out []string
	for _, f := range Fields {
		if p[f] == SourceDefault {
			out = append(out, f)
		}
	}
	return out
}

// Missing lists the optional fields that were not found at all.
func (p Provenance) Missing() []string {
	var out []string
	for _, f := range Fields {
		if _, ok := p[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}
