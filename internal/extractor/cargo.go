package extractor

import (
	"regexp"
	"strings"

	"booking_parser/internal/order"
	"booking_parser/internal/patterns"

	"github.com/shopspring/decimal"
)

var (
	packagePattern = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(?:X\s*)?(EUR[\s-]?PALLETS?|EURO[\s-]?PALLETS?|EPALS?|PALLETS?|PALETTES?|PLTS?|CARTONS?|CTNS?|BOXES|BOX|CRATES?|DRUMS?|BAGS?|SACKS?|ROLLS?|PACKAGES?|PKGS?|COLIS|PIECES?|PCS)\b`)
	weightPattern  = regexp.MustCompile(`(?i)(\d[\d.,]*(?: \d{3})*)\s*(KGS?|KILOS?|KILOGRAMS?|TONNES?|TONS?|T)\b`)
	weightLabel    = regexp.MustCompile(`(?i)\b(WEIGHT|POIDS|GROSS|G\.?W\.?|SVORIS|GEWICHT)\b`)
	ldmPattern     = regexp.MustCompile(`(?i)(?:(\d+(?:[.,]\d+)?)\s*(?:LDM|LM|LOADING\s+MET(?:ER|RE)S?)\b|\bLDM\b\s*[:=]?\s*(\d+(?:[.,]\d+)?))`)
	ldmLabel       = regexp.MustCompile(`(?i)^\s*(LDM|LOADING\s+MET(?:ER|RE)S?)\s*:?\s*$`)
	volumePattern  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:M3|M³|CBM|CUBIC\s+MET(?:ER|RE)S?)\b`)
	dimsPattern    = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*[X×*]\s*(\d+(?:[.,]\d+)?)\s*[X×*]\s*(\d+(?:[.,]\d+)?)\s*(MM|CM|M)?\b`)
	tempRange      = regexp.MustCompile(`(?i)([+-]?\d{1,2}(?:[.,]\d)?)\s*°?\s*C?\s*(?:-|TO|/|\.\.)\s*([+-]?\d{1,2}(?:[.,]\d)?)\s*°\s*?C\b`)
	tempSingle     = regexp.MustCompile(`(?i)\b(?:TEMP(?:ERATURE)?|TEMP\.)\b\.?\s*[:=]?\s*([+-]?\d{1,2}(?:[.,]\d)?)\s*°?\s*C\b`)
	valueLabel     = regexp.MustCompile(`(?i)\b(GOODS\s+VALUE|VALUE\s+OF\s+GOODS|CARGO\s+VALUE|DECLARED\s+VALUE|INSURED\s+VALUE|VALEUR)\b`)
	numberOnly     = regexp.MustCompile(`^\d[\d.,]*(?: \d{3})*$`)
	titleLabel     = regexp.MustCompile(`(?i)\b(GOODS|COMMODITY|MERCHANDISE|MARCHANDISES?|DESCRIPTION|PACKAGING|NATURE|CARGO|PRODUCT)\b\s*[:\-]\s*(.+)$`)

	adrPattern      = regexp.MustCompile(`(?i)\bADR\b`)
	liftPattern     = regexp.MustCompile(`(?i)\b(TAIL[\s-]?LIFT|HAYON|LIFT)\b`)
	manualPattern   = regexp.MustCompile(`(?i)\b(MANUAL|HAND)\s+(UN)?LOAD(ING)?\b|\bMANUAL\s+HANDLING\b`)
	palletizedWords = regexp.MustCompile(`(?i)\b(PALLETI[SZ]ED|PALETTIS[EÉ]E?S?|ON\s+PALLETS)\b`)
	ftlPattern      = regexp.MustCompile(`(?i)\b(FTL|FULL\s+TRUCK(?:\s*LOAD)?|COMPLETE\s+TRUCK|CAMION\s+COMPLET)\b`)
	ltlPattern      = regexp.MustCompile(`(?i)\b(LTL|GROUPAGE|PART\s+LOAD|PARTIAL\s+LOAD)\b`)
	negationBefore  = regexp.MustCompile(`(?i)\b(NO|NON|NOT|WITHOUT|SANS)[\s-]*$`)
	negationAfter   = regexp.MustCompile(`(?i)^\s*[:=]?\s*(NO|N|NON|FALSE)\b`)
)

// commodities is the title taxonomy used on lines that carry quantities.
var commodities = []struct {
	words []string
	title string
}{
	{[]string{"FOODSTUFF", "FOODSTUFFS", "FOOD", "BEVERAGES", "DRINKS"}, "Foodstuffs"},
	{[]string{"STEEL", "METAL", "ALUMINIUM", "ALUMINUM", "COILS"}, "Metal products"},
	{[]string{"PAPER", "CARDBOARD", "PACKAGING MATERIAL"}, "Paper products"},
	{[]string{"CHEMICALS", "CHEMICAL", "PAINT", "RESIN"}, "Chemicals"},
	{[]string{"MACHINERY", "MACHINE", "MACHINES", "SPARE PARTS", "PARTS"}, "Machinery"},
	{[]string{"TEXTILES", "TEXTILE", "CLOTHING", "GARMENTS"}, "Textiles"},
	{[]string{"FURNITURE"}, "Furniture"},
	{[]string{"ELECTRONICS", "ELECTRONIC"}, "Electronics"},
	{[]string{"PLASTIC", "PLASTICS", "GRANULATE"}, "Plastics"},
	{[]string{"TIMBER", "WOOD", "LUMBER"}, "Timber"},
}

// Default cargo titles by package family.
const (
	titlePalletized = "Palletized goods"
	titlePackaged   = "Packaged goods"
)

var packageTypes = []struct {
	prefixes []string
	kind     string
}{
	{[]string{"EUR", "EURO", "EPAL"}, order.PackageEPAL},
	{[]string{"PALLET", "PALETTE", "PLT"}, order.PackagePallet},
	{[]string{"CARTON", "CTN"}, order.PackageCarton},
	{[]string{"BOX"}, order.PackageBox},
	{[]string{"CRATE"}, order.PackageCrate},
	{[]string{"DRUM"}, order.PackageDrum},
	{[]string{"BAG", "SACK"}, order.PackageBag},
	{[]string{"ROLL"}, order.PackageRoll},
}

func packageType(unit string) string {
	u := strings.ToUpper(unit)
	for _, pt := range packageTypes {
		for _, p := range pt.prefixes {
			if strings.HasPrefix(u, p) {
				return pt.kind
			}
		}
	}
	return order.PackagePackage
}

// extractCargo folds every line into cargo attributes, first match wins.
func (e *Engine) extractCargo(lines []string) []order.Cargo {
	var (
		preamble order.Cargo
		cargos   []order.Cargo
	)
	for i := range lines {
		c := lineCargo(lines, i)
		if c.IsZero() {
			continue
		}
		if e.profile.CargoPerPackageLine && c.PackageCount != nil {
			cargos = append(cargos, c)
			continue
		}
		if len(cargos) > 0 {
			cargos[len(cargos)-1] = cargos[len(cargos)-1].Merge(c)
			continue
		}
		preamble = preamble.Merge(c)
	}

	switch {
	case len(cargos) > 0:
		cargos[0] = cargos[0].Merge(preamble)
	case !preamble.IsZero():
		cargos = []order.Cargo{preamble}
	}
	for k := range cargos {
		cargos[k] = finishCargo(cargos[k])
	}
	return cargos
}

func finishCargo(c order.Cargo) order.Cargo {
	if c.PackageType == order.PackagePallet || c.PackageType == order.PackageEPAL {
		if c.Palletized == nil {
			c.Palletized = order.Ptr(true)
		}
	}
	if c.Title == "" {
		switch {
		case c.PackageType == order.PackagePallet || c.PackageType == order.PackageEPAL:
			c.Title = titlePalletized
		case c.PackageType != "":
			c.Title = titlePackaged
		default:
			c.Title = order.GenericCargoTitle
		}
	}
	return c
}

// lineCargo reads the attributes stated on lines[i], looking at the next
// line when a label stands alone.
func lineCargo(lines []string, i int) order.Cargo {
	line := lines[i]
	var c order.Cargo

	c.ADR = flag(line, adrPattern)
	c.Lift = flag(line, liftPattern)
	c.ManualLoad = flag(line, manualPattern)
	if palletizedWords.MatchString(line) {
		c.Palletized = order.Ptr(true)
	}
	switch {
	case ftlPattern.MatchString(line):
		c.Type = order.CargoFTL
	case ltlPattern.MatchString(line):
		c.Type = order.CargoLTL
	}

	// Quantities are not read from prose, terms or the price line.
	if patterns.IsInstructionLine(line) || patterns.IsTermsLine(line) || isPricingLine(line) {
		return c
	}

	quantity := false
	if m := packagePattern.FindStringSubmatch(line); m != nil {
		if n, ok := parseMeasure(m[1]); ok && n > 0 {
			c.PackageCount = order.Ptr(int(n))
			c.PackageType = packageType(m[2])
			quantity = true
		}
	}
	if w, ok := findWeight(lines, i); ok {
		c.Weight = order.Ptr(w)
		quantity = true
	}
	if v, ok := findLDM(lines, i); ok {
		c.LDM = order.Ptr(v)
		quantity = true
	}
	if m := volumePattern.FindStringSubmatch(line); m != nil {
		if v, ok := parseMeasure(m[1]); ok {
			c.Volume = order.Ptr(v)
		}
	}
	if m := dimsPattern.FindStringSubmatch(line); m != nil {
		l, lok := parseMeasure(m[1])
		w, wok := parseMeasure(m[2])
		h, hok := parseMeasure(m[3])
		if lok && wok && hok {
			c.PkgLength, c.PkgWidth, c.PkgHeight = order.Ptr(toCM(l, m[4])), order.Ptr(toCM(w, m[4])), order.Ptr(toCM(h, m[4]))
		}
	}
	if lo, hi, ok := findTemperature(line); ok {
		c.TemperatureMin, c.TemperatureMax = order.Ptr(lo), order.Ptr(hi)
	}
	if valueLabel.MatchString(line) {
		if m, ok := patterns.FindAmount(line); ok {
			c.Value = order.Ptr(m.Amount.InexactFloat64())
			c.Currency = m.Currency
		}
	}

	if m := titleLabel.FindStringSubmatch(line); m != nil {
		if t := strings.Trim(m[2], " .,;"); len(t) >= 3 && !numberOnly.MatchString(t) {
			c.Title = t
		}
	} else if quantity {
		c.Title = commodityTitle(line)
	}
	return c
}

func commodityTitle(line string) string {
	upper := strings.ToUpper(line)
	for _, cm := range commodities {
		if patterns.ContainsWord(upper, cm.words...) {
			return cm.title
		}
	}
	return ""
}

// flag reads a yes/no attribute: the keyword sets it true unless a
// negation precedes it or a "no" value follows it.
func flag(line string, p *regexp.Regexp) *bool {
	loc := p.FindStringIndex(line)
	if loc == nil {
		return nil
	}
	if negationBefore.MatchString(line[:loc[0]]) || negationAfter.MatchString(line[loc[1]:]) {
		return order.Ptr(false)
	}
	return order.Ptr(true)
}

func findWeight(lines []string, i int) (float64, bool) {
	line := lines[i]
	labelled := weightLabel.MatchString(line)
	for _, m := range weightPattern.FindAllStringSubmatch(line, -1) {
		unit := strings.ToUpper(m[2])
		tonnes := strings.HasPrefix(unit, "T")
		// A bare "T" is only a unit next to a weight label.
		if unit == "T" && !labelled {
			continue
		}
		v, ok := parseWeight(m[1])
		if !ok || v <= 0 {
			continue
		}
		if tonnes {
			v *= 1000
		}
		return v, true
	}
	if labelled && i+1 < len(lines) {
		next := strings.TrimSpace(lines[i+1])
		if numberOnly.MatchString(next) {
			return parseWeight(next)
		}
		if m := weightPattern.FindStringSubmatch(next); m != nil && !strings.HasPrefix(strings.ToUpper(m[2]), "T") {
			return parseWeight(m[1])
		}
	}
	return 0, false
}

func findLDM(lines []string, i int) (float64, bool) {
	if m := ldmPattern.FindStringSubmatch(lines[i]); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		return parseMeasure(raw)
	}
	if ldmLabel.MatchString(lines[i]) && i+1 < len(lines) {
		next := strings.TrimSpace(lines[i+1])
		if numberOnly.MatchString(next) {
			return parseMeasure(next)
		}
	}
	return 0, false
}

func findTemperature(line string) (float64, float64, bool) {
	if m := tempRange.FindStringSubmatch(line); m != nil {
		a, aok := parseSigned(m[1])
		b, bok := parseSigned(m[2])
		if aok && bok {
			return min(a, b), max(a, b), true
		}
	}
	if m := tempSingle.FindStringSubmatch(line); m != nil {
		if v, ok := parseSigned(m[1]); ok {
			return v, v, true
		}
	}
	return 0, 0, false
}

func parseSigned(raw string) (float64, bool) {
	neg := strings.HasPrefix(raw, "-")
	v, ok := parseMeasure(strings.TrimLeft(raw, "+-"))
	if neg {
		v = -v
	}
	return v, ok
}

// parseWeight reads a weight figure with the monetary separator rules, so
// "24,000" is 24000 and "12,5" is 125.
func parseWeight(raw string) (float64, bool) {
	d, ok := patterns.ParseAmount(raw)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// parseMeasure parses LDM, volume, dimension and temperature figures, where
// a single separator is always decimal ("13,6 LDM").
func parseMeasure(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return 0, false
	}
	seps := strings.Count(s, ".") + strings.Count(s, ",")
	if seps == 1 {
		k := strings.IndexAny(s, ".,")
		s = s[:k] + "." + s[k+1:]
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}
	d, ok := patterns.ParseAmount(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// toCM converts a dimension to centimetres. Unitless values are taken as
// centimetres.
func toCM(v float64, unit string) float64 {
	switch strings.ToUpper(unit) {
	case "MM":
		return v / 10
	case "M":
		return v * 100
	default:
		return v
	}
}
