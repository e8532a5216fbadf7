// Package templates imports all template packages to trigger their init()
// registration. Import this package for side effects only.
package templates

import (
	// Import all template packages to register them with the registry.
	_ "booking_parser/internal/templates/generic"
	_ "booking_parser/internal/templates/transalliance"
	_ "booking_parser/internal/templates/ziegler"
)
