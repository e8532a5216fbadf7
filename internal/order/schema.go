package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidPayload is returned when a payload does not satisfy the order
// intake schema.
var ErrInvalidPayload = errors.New("payload does not match order schema")

// BuildSchema returns the order intake JSON Schema as a generic map.
func BuildSchema() map[string]any {
	address := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"company":        stringProp(),
			"street_address": stringProp(),
			"city":           stringProp(),
			"postal_code":    stringProp(),
			"country":        map[string]any{"type": "string", "pattern": `^[A-Z]{2}$`},
			"vat_code":       stringProp(),
			"email":          stringProp(),
			"contact_person": stringProp(),
			"comment":        stringProp(),
		},
		"additionalProperties": false,
	}

	stop := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"company_address": address,
			"time": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"datetime_from": stringProp(),
					"datetime_to":   stringProp(),
				},
				"required":             []string{"datetime_from"},
				"additionalProperties": false,
			},
		},
		"required": []string{"company_address"},
	}

	cargo := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":           map[string]any{"type": "string", "minLength": 1},
			"type":            map[string]any{"type": "string", "enum": []string{CargoFTL, CargoLTL}},
			"package_count":   map[string]any{"type": "integer", "minimum": 0},
			"package_type":    stringProp(),
			"weight":          numberProp(),
			"ldm":             numberProp(),
			"volume":          numberProp(),
			"value":           numberProp(),
			"currency":        currencyProp(),
			"pkg_length":      numberProp(),
			"pkg_width":       numberProp(),
			"pkg_height":      numberProp(),
			"temperature_min": map[string]any{"type": "number"},
			"temperature_max": map[string]any{"type": "number"},
			"adr":             boolProp(),
			"palletized":      boolProp(),
			"lift":            boolProp(),
			"manual_load":     boolProp(),
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"attachment_filenames": map[string]any{"type": "array", "items": stringProp()},
			"customer": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"side":    map[string]any{"type": "string"},
					"details": address,
				},
				"required": []string{"side", "details"},
			},
			"order_reference":       map[string]any{"type": "string", "minLength": 1},
			"freight_price":         map[string]any{"type": "number", "minimum": 0},
			"freight_currency":      currencyProp(),
			"loading_locations":     map[string]any{"type": "array", "minItems": 1, "items": stop},
			"destination_locations": map[string]any{"type": "array", "minItems": 1, "items": stop},
			"cargos":                map[string]any{"type": "array", "minItems": 1, "items": cargo},
			"comment":               map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{
			"order_reference", "freight_price", "freight_currency",
			"loading_locations", "destination_locations", "cargos",
		},
		"additionalProperties": false,
	}
}

func stringProp() map[string]any   { return map[string]any{"type": "string"} }
func numberProp() map[string]any   { return map[string]any{"type": "number", "minimum": 0} }
func boolProp() map[string]any     { return map[string]any{"type": "boolean"} }
func currencyProp() map[string]any { return map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`} }

var (
	compiled    *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(BuildSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("order.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile("order.json")
	})
	return compiled, compileErr
}

// Validate checks p against the order intake schema. Violations wrap
// ErrInvalidPayload.
func Validate(p *Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return ValidateJSON(data)
}

// ValidateJSON checks raw payload JSON against the order intake schema.
func ValidateJSON(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
