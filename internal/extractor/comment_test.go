package extractor

import "testing"

func TestExtractComment(t *testing.T) {
	lines := []string{
		"ACME LOGISTICS LTD",
		"Pallet exchange required",
		"Please scan the CMR",
		"pallet exchange required",
		"12 RUE DE PARIS",
	}

	e := New(GenericProfile())
	want := "Pallet exchange required | Please scan the CMR"
	if got := e.extractComment(lines, "X123"); got != want {
		t.Errorf("extractComment() = %q, want %q", got, want)
	}

	p := GenericProfile()
	p.CommentReferencePrefix = true
	e = New(p, WithHooks(Hooks{Notes: func([]string) []string { return []string{"Carrier: Fast Trucks."} }}))
	want = "Order Ref: X123 | Pallet exchange required | Please scan the CMR | Carrier: Fast Trucks."
	if got := e.extractComment(lines, "X123"); got != want {
		t.Errorf("extractComment() = %q, want %q", got, want)
	}

	if got := New(GenericProfile()).extractComment([]string{"12 RUE DE PARIS"}, "X123"); got != "" {
		t.Errorf("extractComment() = %q, want empty", got)
	}
}

func TestExtractCommentSection(t *testing.T) {
	p := GenericProfile()
	p.InstructionsSection = "Special instructions"
	e := New(p)

	lines := []string{
		"Please confirm by return",
		"SPECIAL INSTRUCTIONS",
		"Driver must wear PPE",
	}
	if got := e.extractComment(lines, ""); got != "Driver must wear PPE" {
		t.Errorf("extractComment() = %q", got)
	}
}
