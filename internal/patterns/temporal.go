package patterns

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"booking_parser/internal/order"
)

// TimestampLayout is the ISO-8601 layout used for every TimeWindow value.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// Date is a civil calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Clock is a 24-hour wall-clock time.
type Clock struct {
	Hour, Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// TimeRange is a start time with an optional end.
type TimeRange struct {
	Start Clock
	End   *Clock
}

var dateFormats = MustCompile([]Format{
	{Name: "iso", Pattern: `\b(?P<y>\d{4})-(?P<m>\d{2})-(?P<d>\d{2})\b`},
	{Name: "dmy", Pattern: `\b(?P<d>\d{1,2})[/.\-](?P<m>\d{1,2})[/.\-](?P<y>\d{4}|\d{2})\b`},
}, nil)

var timeFormats = MustCompile([]Format{
	{Name: "booked", Pattern: `BOOKED\s*-?\s*(?P<start>{CLOCK})(?:\s*(?P<startmer>{MERIDIEM})\b)?`},
	{Name: "time_to", Pattern: `(?P<start>{CLOCK})(?:\s*(?P<startmer>{MERIDIEM})\b)?\s*TIME\s+TO\s*:?\s*(?P<end>{CLOCK})(?:\s*(?P<endmer>{MERIDIEM})\b)?`},
	{Name: "hhmm_hour", Pattern: `\b(?P<start>{HHMM})\s*-\s*(?P<end>{HOUR})\s*(?P<endmer>{MERIDIEM})\b`},
	{Name: "range", Pattern: `\b(?P<start>{CLOCK})(?:\s*(?P<startmer>{MERIDIEM})\b)?\s*(?:{RANGE})\s*(?P<end>{CLOCK})(?:\s*(?P<endmer>{MERIDIEM})\b)?`},
	{Name: "single", Pattern: `\b(?P<start>{CLOCK})(?:\s*(?P<startmer>{MERIDIEM})\b)?`},
}, nil)

// FindDate returns the first valid calendar date in line. Two-digit years
// pivot at 80: 80-99 are 19xx, the rest 20xx. Day-first is assumed unless
// the month field is over 12.
func FindDate(line string) (Date, bool) {
	for _, m := range dateFormats.ParseAll(line) {
		y, _ := strconv.Atoi(m.Captures["y"])
		mo, _ := strconv.Atoi(m.Captures["m"])
		d, _ := strconv.Atoi(m.Captures["d"])

		if len(m.Captures["y"]) == 2 {
			if y >= 80 {
				y += 1900
			} else {
				y += 2000
			}
		}
		if m.FormatName == "dmy" && mo > 12 && d <= 12 {
			d, mo = mo, d
		}
		if date, ok := validDate(y, mo, d); ok {
			return date, true
		}
	}
	return Date{}, false
}

func validDate(y, m, d int) (Date, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return Date{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(m), Day: d}, true
}

// FindTimeRange returns the first time or time range in line, normalised
// to 24-hour clock.
func FindTimeRange(line string) (TimeRange, bool) {
	for _, m := range timeFormats.ParseAll(line) {
		start, ok := parseClock(m.Captures["start"], m.Captures["startmer"])
		if !ok {
			continue
		}
		tr := TimeRange{Start: start}
		if raw := m.Captures["end"]; raw != "" {
			if end, ok := parseClock(raw, m.Captures["endmer"]); ok {
				tr.End = &end
			}
		}
		return tr, true
	}
	return TimeRange{}, false
}

// parseClock reads "HH:MM", "HHMM" or a bare hour with an optional AM/PM.
func parseClock(raw, meridiem string) (Clock, bool) {
	var hh, mm string
	switch {
	case strings.Contains(raw, ":"):
		hh, mm, _ = strings.Cut(raw, ":")
	case len(raw) == 4:
		hh, mm = raw[:2], raw[2:]
	default:
		hh, mm = raw, "0"
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return Clock{}, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return Clock{}, false
	}

	switch meridiem {
	case "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h < 12 {
			h += 12
		}
	}
	if h > 23 || m > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: m}, true
}

// Temporal builds TimeWindows in a fixed location.
type Temporal struct {
	Location *time.Location
}

func (t Temporal) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

func (t Temporal) format(d Date, c Clock) string {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, t.location()).Format(TimestampLayout)
}

// Window builds a TimeWindow from a date and an optional time range. A nil
// range starts the window at midnight.
func (t Temporal) Window(d Date, tr *TimeRange) *order.TimeWindow {
	if tr == nil {
		return &order.TimeWindow{DatetimeFrom: t.format(d, Clock{})}
	}
	w := &order.TimeWindow{DatetimeFrom: t.format(d, tr.Start)}
	if tr.End != nil {
		w.DatetimeTo = t.format(d, *tr.End)
	}
	return w
}

// ParseLine returns the window described by a single line, if it carries a
// date.
func (t Temporal) ParseLine(line string) (*order.TimeWindow, bool) {
	d, ok := FindDate(line)
	if !ok {
		return nil, false
	}
	if tr, ok := FindTimeRange(line); ok {
		return t.Window(d, &tr), true
	}
	return t.Window(d, nil), true
}

// Nearest resolves the window for a stop whose lines are lines[from:to].
// A line holding both date and time wins; otherwise the first date and the
// first time in the window are combined. Without a forward date it looks
// back from from-1 down to backLo, so callers bound the backward search to
// the current section.
func (t Temporal) Nearest(lines []string, from, to, backLo int) *order.TimeWindow {
	from = max(from, 0)
	to = min(to, len(lines))

	var (
		date  *Date
		clock *TimeRange
	)
	for i := from; i < to; i++ {
		d, dok := FindDate(lines[i])
		tr, tok := FindTimeRange(lines[i])
		if dok && tok {
			return t.Window(d, &tr)
		}
		if dok && date == nil {
			date = &d
		}
		if tok && clock == nil {
			clock = &tr
		}
	}
	if date != nil {
		return t.Window(*date, clock)
	}

	for i := min(from, len(lines)) - 1; i >= max(backLo, 0); i-- {
		d, ok := FindDate(lines[i])
		if !ok {
			continue
		}
		if clock == nil {
			if tr, ok := FindTimeRange(lines[i]); ok {
				clock = &tr
			}
		}
		return t.Window(d, clock)
	}
	return nil
}
