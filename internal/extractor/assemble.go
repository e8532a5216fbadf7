package extractor

import (
	"booking_parser/internal/order"
	"booking_parser/internal/patterns"
)

type assembly struct {
	filename    string
	reference   string
	refPriority int
	freight     freight
	customer    order.Address
	customerOK  bool
	stops       stopSet
	cargos      []order.Cargo
	comment     string
}

// assemble builds the payload, filling every required field with a
// placeholder when extraction found nothing, and records provenance.
func assemble(a assembly, prov order.Provenance) order.Payload {
	p := order.Payload{
		AttachmentFilenames: attachmentNames(a.filename),
		Customer:            order.Customer{Side: order.CustomerSideNone, Details: a.customer},
		FreightPrice:        a.freight.Amount.InexactFloat64(),
		FreightCurrency:     a.freight.Currency,
		Comment:             a.comment,
	}

	switch {
	case a.reference == "":
		p.OrderReference = order.PlaceholderReference
		prov.Set(order.FieldReference, order.SourceDefault)
	case a.refPriority >= patterns.RefPriorityPositional:
		p.OrderReference = a.reference
		prov.Set(order.FieldReference, order.SourceHeuristic)
	default:
		p.OrderReference = a.reference
		prov.Set(order.FieldReference, order.SourceExplicit)
	}

	prov.Set(order.FieldPrice, a.freight.Source)
	if p.FreightCurrency == "" {
		p.FreightCurrency = order.DefaultCurrency
		prov.Set(order.FieldCurrency, order.SourceDefault)
	} else {
		prov.Set(order.FieldCurrency, a.freight.CurrencySource)
	}

	if a.customerOK && !a.customer.IsZero() {
		prov.Set(order.FieldCustomer, order.SourceExplicit)
	}

	p.LoadingLocations = placeholderStops(a.stops.loading)
	p.DestinationLocations = placeholderStops(a.stops.delivery)
	stopSource(prov, order.FieldLoading, a.stops.loading, a.stops.source)
	stopSource(prov, order.FieldDestination, a.stops.delivery, a.stops.source)

	if len(a.cargos) == 0 {
		p.Cargos = []order.Cargo{{Title: order.GenericCargoTitle, PackageCount: order.Ptr(1)}}
		prov.Set(order.FieldCargos, order.SourceDefault)
	} else {
		p.Cargos = a.cargos
		prov.Set(order.FieldCargos, order.SourceExplicit)
	}

	if p.Comment != "" {
		prov.Set(order.FieldComment, order.SourceExplicit)
	}
	return p
}

func placeholderStops(stops []order.Stop) []order.Stop {
	if len(stops) == 0 {
		return []order.Stop{{CompanyAddress: order.Address{}}}
	}
	return stops
}

func stopSource(prov order.Provenance, field string, stops []order.Stop, src order.Source) {
	if len(stops) == 0 || src == "" {
		prov.Set(field, order.SourceDefault)
		return
	}
	prov.Set(field, src)
}
