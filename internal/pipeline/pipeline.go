// Package pipeline runs a document through dispatch, validation, scoring
// and persistence. The CLI, the API and the queue worker share it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"booking_parser/internal/document"
	"booking_parser/internal/extractor"
	"booking_parser/internal/order"
	"booking_parser/internal/quality"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
)

// ErrNoTemplate is returned when the registry has no template at all.
var ErrNoTemplate = errors.New("no template registered")

// PlaceObserver learns city names from extracted stops.
type PlaceObserver interface {
	Observe(ctx context.Context, city, country string) error
}

// Processor holds the optional sinks. Nil sinks are skipped.
type Processor struct {
	Registry *registry.Registry
	Store    storage.OrderStore
	Events   storage.EventSink
	Places   PlaceObserver
	Logger   *slog.Logger
}

// Outcome is the result of processing one document.
type Outcome struct {
	DocumentID string            `json:"document_id"`
	Template   string            `json:"template"`
	Payload    order.Payload     `json:"payload"`
	Provenance order.Provenance  `json:"provenance"`
	Quality    *quality.Report   `json:"quality"`
	Stored     bool              `json:"stored"`
	Duration   time.Duration     `json:"-"`
	result     *extractor.Result
}

// Result returns the raw extraction result.
func (o *Outcome) Result() *extractor.Result { return o.result }

func (p *Processor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

func (p *Processor) registry() *registry.Registry {
	if p.Registry == nil {
		return registry.Default()
	}
	return p.Registry
}

// Extract dispatches and validates doc without persisting anything.
func (p *Processor) Extract(doc *document.Document) (*Outcome, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.EnsureID()

	start := time.Now()
	res := p.registry().Dispatch(doc)
	if res == nil {
		return nil, ErrNoTemplate
	}
	if err := order.Validate(&res.Payload); err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}

	return &Outcome{
		DocumentID: doc.ID,
		Template:   res.Template,
		Payload:    res.Payload,
		Provenance: res.Provenance,
		Quality:    quality.Assess(res),
		Duration:   time.Since(start),
		result:     res,
	}, nil
}

// Process extracts doc and hands the outcome to every configured sink.
// Event and gazetteer failures are logged, a store failure is returned.
func (p *Processor) Process(ctx context.Context, doc *document.Document) (*Outcome, error) {
	out, err := p.Extract(doc)
	if err != nil {
		return nil, err
	}
	log := p.logger().With("document", out.DocumentID, "template", out.Template)

	rec := storage.NewRecord(doc, out.result)
	if p.Store != nil {
		if err := p.Store.SaveOrder(ctx, rec); err != nil {
			return out, fmt.Errorf("save order %s: %w", out.DocumentID, err)
		}
		out.Stored = true
	}

	if p.Events != nil {
		if err := p.Events.RecordEvent(ctx, storage.NewEvent(rec, out.Duration)); err != nil {
			log.Warn("record event failed", "error", err)
		}
	}

	if p.Places != nil {
		p.observe(ctx, log, out.Payload)
	}

	log.Info("order extracted",
		"reference", out.Payload.OrderReference,
		"confidence", out.Quality.Confidence,
		"needs_review", out.Quality.NeedsReview,
		"stored", out.Stored)
	return out, nil
}

// observe feeds explicit stop cities to the gazetteer so later documents
// can resolve them without a postal code.
func (p *Processor) observe(ctx context.Context, log *slog.Logger, pl order.Payload) {
	stops := append(append([]order.Stop{}, pl.LoadingLocations...), pl.DestinationLocations...)
	for _, s := range stops {
		a := s.CompanyAddress
		if a.City == "" || a.Country == "" || a.PostalCode == "" {
			continue
		}
		if err := p.Places.Observe(ctx, a.City, a.Country); err != nil {
			log.Warn("gazetteer observe failed", "city", a.City, "error", err)
			return
		}
	}
}
