// Package patterns provides shared regex patterns and helper functions for
// booking confirmation extraction.
// This file contains grok-style base patterns for use with the Compiler.

package patterns

// BasePatterns defines reusable regex components for grok-style pattern composition.
// These are referenced in format patterns using {PATTERN_NAME} syntax.
// Text is upper-cased before matching, so components only need upper case.
var BasePatterns = map[string]string{
	// Dates.
	"DATE_DMY": `\d{1,2}[/.\-]\d{1,2}[/.\-](?:\d{4}|\d{2})`, // 27/06/2025, 27.06.25
	"DATE_ISO": `\d{4}-\d{2}-\d{2}`,                         // 2025-06-27

	// Times.
	"CLOCK":    `\d{1,2}:\d{2}`, // 08:00, 8:00
	"HHMM":     `\d{4}`,         // 0800
	"HOUR":     `\d{1,2}`,       // 2 in "0900-2pm"
	"MERIDIEM": `AM|PM`,
	"RANGE":    `-|TO|UNTIL|AU|A`, // between two clock times

	// Money.
	"CURRENCY": `EUR|USD|GBP`,
	"SYMBOL":   `[€£$]`,
	"AMOUNT":   `\d[\d.,]*(?: \d{3}(?:[.,]\d+)?)*`, // 1.250,50 / 1,475.00 / 1 475

	// Postcodes.
	"POSTCODE_GB": `[A-Z]{1,2}\d{1,2}[A-Z]?\s?\d[A-Z]{2}`,
	"POSTCODE_LT": `LT-\d{5}`,
	"POSTCODE_5":  `\d{5}`,

	// Identifiers.
	"REFTOKEN": `[A-Z0-9][A-Z0-9/\-]{2,}`,
	"SEP":      `\s*[:#.\-]?\s*`,
}
