package patterns

import "testing"

func TestCompilerPlaceholders(t *testing.T) {
	c := NewCompiler([]Format{
		{Name: "range", Pattern: `(?P<from>{CLOCK})\s*-\s*(?P<to>{CLOCK})`},
		{Name: "money", Pattern: `(?P<cur>{CURRENCY})\s*(?P<amount>{AMOUNT})`},
		{Name: "local", Pattern: `(?P<code>{FUSM})`},
	}, map[string]string{"FUSM": `FUSM\d{10,}`})
	if err := c.Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	m := c.Parse("slot 08:00 - 12:00")
	if m == nil || m.FormatName != "range" {
		t.Fatalf("Parse() = %+v, want range", m)
	}
	if m.GetCapture("from", "") != "08:00" || m.GetCapture("to", "") != "12:00" {
		t.Errorf("captures = %v", m.Captures)
	}
	if span := m.Spans["from"]; span != [2]int{5, 10} {
		t.Errorf("span of from = %v", span)
	}

	all := c.ParseAll("eur 1 475 for 08:00-09:00 fusm0001714403")
	if len(all) != 3 {
		t.Fatalf("ParseAll() returned %d matches, want 3", len(all))
	}
	if all[1].Captures["amount"] != "1 475" {
		t.Errorf("amount = %q", all[1].Captures["amount"])
	}
	if all[2].Captures["code"] != "FUSM0001714403" {
		t.Errorf("code = %q", all[2].Captures["code"])
	}

	if got := c.FindAllMatches("08:00-09:00 and 13:00-17:00", "range"); len(got) != 2 {
		t.Errorf("FindAllMatches() returned %d, want 2", len(got))
	}

	var nilMatch *Match
	if got := nilMatch.GetCapture("x", "default"); got != "default" {
		t.Errorf("GetCapture on nil = %q", got)
	}
}

func TestCompilerBadPattern(t *testing.T) {
	c := NewCompiler([]Format{{Name: "broken", Pattern: `(?P<x>[`}}, nil)
	if err := c.Compile(); err == nil {
		t.Error("Compile() should fail on an invalid pattern")
	}
}

func TestParseWithTrace(t *testing.T) {
	trace := timeFormats.ParseWithTrace("0900-2pm")
	if trace.Match == nil || trace.Match.FormatName != "hhmm_hour" {
		t.Fatalf("trace match = %+v", trace.Match)
	}
	if len(trace.Formats) != 5 {
		t.Errorf("trace has %d formats, want 5", len(trace.Formats))
	}
	for _, ft := range trace.Formats {
		if ft.Pattern == "" {
			t.Errorf("format %s has no expanded pattern", ft.Name)
		}
	}
}
