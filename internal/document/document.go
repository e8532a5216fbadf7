// Package document provides the input types for booking confirmation extraction.
package document

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrEmpty is returned when a document carries no text at all.
var ErrEmpty = errors.New("document has no lines")

// FlexLines handles JSON fields that can be either an array of lines or a
// single newline-separated string.
type FlexLines []string

func (f *FlexLines) UnmarshalJSON(data []byte) error {
	// Try as array first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*f = arr
		return nil
	}

	// Try as string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = nil
			return nil
		}
		s = strings.ReplaceAll(s, "\r\n", "\n")
		*f = strings.Split(s, "\n")
		return nil
	}

	*f = nil
	return nil // Silently ignore unusable payloads, the engine treats them as empty.
}

// Document is one PDF-to-text conversion result awaiting extraction.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename,omitempty"`
	Lines      FlexLines `json:"lines"`
	ReceivedAt string    `json:"received_at,omitempty"`

	// Template forces a specific template by name, skipping classification.
	Template string `json:"template,omitempty"`
}

// New creates a document with a fresh ID.
func New(filename string, lines []string) *Document {
	return &Document{
		ID:       uuid.NewString(),
		Filename: filename,
		Lines:    lines,
	}
}

// EnsureID assigns a random ID when the producer did not supply one.
func (d *Document) EnsureID() {
	if strings.TrimSpace(d.ID) == "" {
		d.ID = uuid.NewString()
	}
}

// Text joins the raw lines with newlines.
func (d *Document) Text() string {
	return strings.Join(d.Lines, "\n")
}

// Validate reports ErrEmpty when no line has any visible content.
func (d *Document) Validate() error {
	for _, l := range d.Lines {
		if strings.TrimSpace(l) != "" {
			return nil
		}
	}
	return ErrEmpty
}

// Envelope is the job-queue wrapper where the document is nested inside
// a "document" field with routing metadata at the top level.
type Envelope struct {
	JobID    string    `json:"job_id,omitempty"`
	Source   *Source   `json:"source,omitempty"`
	Document *Document `json:"document,omitempty"`
}

// Source describes the producer of a queued document.
type Source struct {
	Name    string `json:"name,omitempty"`
	Mailbox string `json:"mailbox,omitempty"`
}

// ToDocument unwraps the envelope, falling back to the job ID for the
// document ID.
func (e *Envelope) ToDocument() *Document {
	if e.Document == nil {
		return nil
	}

	doc := *e.Document
	if doc.ID == "" {
		doc.ID = e.JobID
	}
	doc.EnsureID()

	return &doc
}

// Decode accepts either an Envelope or a bare Document and returns the
// document it carries.
func Decode(data []byte) (*Document, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Document != nil {
		return env.ToDocument(), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Lines) == 0 {
		return nil, ErrEmpty
	}
	doc.EnsureID()

	return &doc, nil
}
