package extractor

import (
	"regexp"
	"slices"
	"strings"

	"booking_parser/internal/order"
	"booking_parser/internal/patterns"
)

// Role is the side of the trip a stop belongs to.
type Role int

const (
	RoleLoading Role = iota
	RoleDelivery
)

func (r Role) String() string {
	if r == RoleDelivery {
		return "delivery"
	}
	return "loading"
}

// Stop ranks. Lower wins when the per-role cap is applied.
const (
	rankMarker = iota
	rankKnownCompany
	rankStructural
)

// Lookahead for the structural pass: an address must start within this many
// lines of the company line.
const heuristicLookahead = 3

var (
	// genericRemainder lists marker remainders that are labels, not names.
	genericRemainder = map[string]bool{
		"ADDRESS": true, "ADDRESSES": true, "PLACE": true, "POINT": true, "DATE": true,
		"TIME": true, "DETAILS": true, "INFORMATION": true, "INFO": true, "LOCATION": true,
		"SITE": true, "ADRESSE": true, "LIEU": true, "DATE AND TIME": true, "ADDRESS DETAILS": true,
	}
	stopNotePattern = regexp.MustCompile(`(?i)\b(REF|BOOKING|ORDER|INSTRUCTIONS)\b`)
	labelOnly       = regexp.MustCompile(`(?i)^(REF|REFERENCE|BOOKING|ORDER)\b`)
)

// section is a marker-delimited block of lines[start:end]. start is the
// marker line.
type section struct {
	role  Role
	start int
	end   int
	seed  string // company from the marker line remainder
	rest  string // non-company remainder
}

type stopSet struct {
	loading  []order.Stop
	delivery []order.Stop
	claimed  map[int]bool
	source   order.Source
}

type rankedStop struct {
	stop order.Stop
	role Role
	rank int
	line int
}

// markerAt reports the role of a marker line and the text that follows the
// marker. The earliest marker in the line wins.
func (e *Engine) markerAt(line string) (Role, string, bool) {
	if patterns.IsInstructionLine(line) {
		return 0, "", false
	}
	if patterns.HasPriceHint(line) {
		if _, ok := patterns.FindAmount(line); ok {
			return 0, "", false
		}
	}
	upper := strings.ToUpper(line)

	bestPos, bestEnd, found := -1, 0, false
	var role Role
	try := func(markers []string, r Role) {
		for _, m := range markers {
			pos := e.markerIndex(upper, m)
			if pos < 0 {
				continue
			}
			// Longer marker wins on a tie ("LOADING PLACE" over "LOADING").
			if !found || pos < bestPos || pos == bestPos && pos+len(m) > bestEnd {
				bestPos, bestEnd, role, found = pos, pos+len(m), r, true
			}
		}
	}
	try(e.profile.LoadingMarkers, RoleLoading)
	try(e.profile.DeliveryMarkers, RoleDelivery)
	if !found {
		return 0, "", false
	}

	rest := strings.TrimSpace(line[bestEnd:])
	if len(e.profile.HeaderTrailers) > 0 {
		trimmed, ok := e.cutTrailer(rest)
		if !ok && e.profile.RequireTrailer {
			return 0, "", false
		}
		rest = trimmed
	}
	return role, strings.Trim(rest, " :-#/"), true
}

func (e *Engine) markerIndex(upper, marker string) int {
	m := strings.ToUpper(marker)
	if e.profile.MarkerMode == MarkerPrefix {
		if strings.HasPrefix(upper, m) && wordBoundary(upper, len(m)) {
			return 0
		}
		return -1
	}
	pos := wordIndex(upper, m)
	if pos < 0 || leadingWords(upper[:pos]) > maxMarkerLead {
		return -1
	}
	return pos
}

// maxMarkerLead is how many words may precede a marker ("PLACE OF
// DELIVERY"); more and the line is prose or a name that mentions the word.
const maxMarkerLead = 2

func leadingWords(prefix string) int {
	n := 0
	for _, w := range strings.Fields(prefix) {
		if strings.ContainsFunc(w, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
			n++
		}
	}
	return n
}

func (e *Engine) cutTrailer(rest string) (string, bool) {
	upper := strings.ToUpper(rest)
	for _, t := range e.profile.HeaderTrailers {
		t = strings.ToUpper(t)
		if upper == t {
			return "", true
		}
		if strings.HasSuffix(upper, " "+t) {
			return strings.TrimSpace(rest[:len(rest)-len(t)]), true
		}
	}
	return rest, false
}

// sections finds every marker block.
func (e *Engine) sections(lines []string) []section {
	var out []section
	for i, line := range lines {
		role, rest, ok := e.markerAt(line)
		if !ok {
			continue
		}
		s := section{role: role, start: i}
		upperRest := strings.ToUpper(rest)
		switch {
		case rest == "" || genericRemainder[upperRest]:
		case patterns.IsLikelyCompany(upperRest):
			s.seed = rest
		default:
			s.rest = rest
		}
		out = append(out, s)
	}
	for k := range out {
		out[k].end = e.sectionEnd(lines, out, k)
	}
	return out
}

// sectionEnd stops a block at the next marker, a pricing line or a terms
// line, or after the profile window.
func (e *Engine) sectionEnd(lines []string, secs []section, k int) int {
	limit := min(secs[k].start+1+e.profile.Window, len(lines))
	if k+1 < len(secs) {
		limit = min(limit, secs[k+1].start)
	}
	for i := secs[k].start + 1; i < limit; i++ {
		if isPricingLine(lines[i]) || patterns.IsTermsLine(lines[i]) {
			return i
		}
	}
	return limit
}

func isPricingLine(line string) bool {
	if !patterns.HasPriceHint(line) {
		return false
	}
	_, ok := patterns.FindAmount(line)
	return ok
}

// extractStops runs the marker pass.
func (e *Engine) extractStops(lines []string) stopSet {
	set := stopSet{claimed: map[int]bool{}}
	var ranked []rankedStop

	prevEnd := 0
	for _, s := range e.sections(lines) {
		for i := s.start; i < s.end; i++ {
			set.claimed[i] = true
		}

		stop, ok := e.buildStop(lines, s.start, s.end, max(prevEnd, s.start-e.profile.BackWindow), s.seed, s.rest, false)
		prevEnd = s.end
		if !ok {
			e.logger.Debug("stop dropped", "role", s.role, "line", s.start)
			continue
		}
		ranked = append(ranked, rankedStop{stop: stop, role: s.role, rank: rankMarker, line: s.start})
	}

	set.loading, set.delivery = e.finalizeStops(ranked)
	if len(set.loading)+len(set.delivery) > 0 {
		set.source = order.SourceExplicit
	}
	return set
}

// buildStop resolves the address and time of lines[from:to], where
// lines[from] is the head line.
func (e *Engine) buildStop(lines []string, from, to, backLo int, seed, rest string, lenient bool) (order.Stop, bool) {
	window := make([]string, 0, to-from)
	if rest != "" {
		window = append(window, rest)
	}
	for _, l := range lines[from+1 : to] {
		if labelOnly.MatchString(l) {
			continue
		}
		window = append(window, l)
	}

	resolver := e.resolver
	resolver.CaptureCompany = seed == ""
	addr := resolver.Resolve(window, order.Address{Company: seed})
	addr.Comment = e.stopNote(addr.Company, lines[from+1:to])

	var stop order.Stop
	stop.CompanyAddress = addr
	stop.Time = e.temporal.Nearest(lines, from, to, backLo)

	if !lenient && e.profile.Strict && addr.Company == "" && stop.Time == nil {
		return stop, false
	}
	return stop, !addr.IsZero() || stop.Time != nil
}

func (e *Engine) stopNote(company string, window []string) string {
	for _, l := range window {
		if e.hooks.StopNote != nil {
			if note, ok := e.hooks.StopNote(company, l); ok {
				return note
			}
			continue
		}
		if stopNotePattern.MatchString(l) {
			return l
		}
	}
	return ""
}

// heuristicStops finds stops without markers: a company line followed
// closely by an address. The first becomes the loading stop.
func (e *Engine) heuristicStops(lines []string, claimed map[int]bool) stopSet {
	set := stopSet{claimed: claimed}

	type head struct {
		line int
		rank int
	}
	var heads []head
	for i, line := range lines {
		if claimed[i] {
			continue
		}
		known := e.isKnownCompany(line)
		if !known && !patterns.IsLikelyCompany(line) {
			continue
		}
		if !addressFollows(lines, i, claimed) {
			continue
		}
		rank := rankStructural
		if known {
			rank = rankKnownCompany
		}
		heads = append(heads, head{line: i, rank: rank})
	}

	var ranked []rankedStop
	prevEnd := 0
	for k, h := range heads {
		end := min(h.line+1+e.profile.Window, len(lines))
		if k+1 < len(heads) {
			end = min(end, heads[k+1].line)
		}
		for i := h.line + 1; i < end; i++ {
			if claimed[i] || isPricingLine(lines[i]) || patterns.IsTermsLine(lines[i]) {
				end = i
				break
			}
		}

		stop, ok := e.buildStop(lines, h.line, end, max(prevEnd, h.line-e.profile.BackWindow), lines[h.line], "", true)
		prevEnd = end
		if !ok {
			continue
		}
		role := RoleDelivery
		if len(ranked) == 0 {
			role = RoleLoading
		}
		ranked = append(ranked, rankedStop{stop: stop, role: role, rank: h.rank, line: h.line})
	}

	set.loading, set.delivery = e.finalizeStops(ranked)
	if len(set.loading)+len(set.delivery) > 0 {
		set.source = order.SourceHeuristic
	}
	return set
}

func addressFollows(lines []string, i int, claimed map[int]bool) bool {
	for j := i + 1; j <= i+heuristicLookahead && j < len(lines); j++ {
		if claimed[j] {
			return false
		}
		if patterns.LooksLikeStreet(lines[j]) {
			return true
		}
		if _, ok := patterns.FindPostcode(lines[j]); ok {
			return true
		}
	}
	return false
}

func (e *Engine) isKnownCompany(line string) bool {
	if len(e.profile.KnownCompanies) == 0 {
		return false
	}
	return patterns.ContainsWord(strings.ToUpper(line), e.profile.KnownCompanies...)
}

// finalizeStops splits by role, ranks, deduplicates and caps.
func (e *Engine) finalizeStops(ranked []rankedStop) (loading, delivery []order.Stop) {
	slices.SortStableFunc(ranked, func(a, b rankedStop) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return a.line - b.line
	})
	for _, r := range ranked {
		if r.role == RoleLoading {
			loading = append(loading, r.stop)
		} else {
			delivery = append(delivery, r.stop)
		}
	}
	return capStops(DedupStops(loading), e.profile.MaxStops), capStops(DedupStops(delivery), e.profile.MaxStops)
}

// DedupStops removes stops whose company (ignoring legal forms), postal code
// and time window repeat an earlier stop. The first occurrence is kept.
func DedupStops(stops []order.Stop) []order.Stop {
	if len(stops) == 0 {
		return stops
	}
	seen := make(map[string]bool, len(stops))
	out := make([]order.Stop, 0, len(stops))
	for _, s := range stops {
		k := dedupKey(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func dedupKey(s order.Stop) string {
	var from, to string
	if s.Time != nil {
		from, to = s.Time.DatetimeFrom, s.Time.DatetimeTo
	}
	return patterns.StripLegalSuffixes(s.CompanyAddress.Company) + "|" +
		strings.ToUpper(strings.ReplaceAll(s.CompanyAddress.PostalCode, " ", "")) + "|" + from + "|" + to
}

func capStops(stops []order.Stop, n int) []order.Stop {
	if n > 0 && len(stops) > n {
		return stops[:n]
	}
	return stops
}

func wordIndex(upper, word string) int {
	idx := 0
	for {
		i := strings.Index(upper[idx:], word)
		if i < 0 {
			return -1
		}
		start := idx + i
		if wordBoundary(upper, start-1) && wordBoundary(upper, start+len(word)) {
			return start
		}
		idx = start + 1
	}
}

func wordBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}
