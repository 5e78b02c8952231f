package store

import (
	"testing"

	"github.com/stlalpha/qwk/internal/validate"
)

func extract(t *testing.T, lines []string) ([]Kludge, []string) {
	t.Helper()
	ctx := validate.NewContext(validate.ModeLenient)
	loc := validate.Loc(FileName)
	return extractKludges(lines, ctx, loc)
}

func TestKludgeQWKELongHeader(t *testing.T) {
	kludges, body := extract(t, []string{
		"To: Very Long Recipient Name Exceeding 25 Chars",
		"",
		"Hello there.",
	})
	if len(kludges) != 1 {
		t.Fatalf("got %d kludges, want 1", len(kludges))
	}
	if kludges[0].Key != "To" || kludges[0].Value != "Very Long Recipient Name Exceeding 25 Chars" {
		t.Errorf("kludge: %+v", kludges[0])
	}
	if len(body) != 1 || body[0] != "Hello there." {
		t.Errorf("body: %q", body)
	}
}

func TestKludgeColonFalsePositive(t *testing.T) {
	// A colon-bearing first line that is not To/From/Subject is body
	// text and must stay.
	kludges, body := extract(t, []string{"Note: important."})
	if len(kludges) != 0 {
		t.Fatalf("got %d kludges, want 0", len(kludges))
	}
	if len(body) != 1 || body[0] != "Note: important." {
		t.Errorf("body: %q", body)
	}
}

func TestKludgeBlankBeforeAnyKludgeStays(t *testing.T) {
	kludges, body := extract(t, []string{"", "real text"})
	if len(kludges) != 0 {
		t.Fatalf("got %d kludges, want 0", len(kludges))
	}
	if len(body) != 2 || body[0] != "" || body[1] != "real text" {
		t.Errorf("body: %q", body)
	}
}

func TestKludgeAtPrefix(t *testing.T) {
	kludges, body := extract(t, []string{
		"@VIA: SOMEBBS",
		"@MSGID: 1:2/3 abcdef12",
		"actual text",
	})
	if len(kludges) != 2 {
		t.Fatalf("got %d kludges, want 2", len(kludges))
	}
	if kludges[0].Key != "@VIA" || kludges[0].Value != "SOMEBBS" {
		t.Errorf("kludge 0: %+v", kludges[0])
	}
	if kludges[0].RawLine != "@VIA: SOMEBBS" {
		t.Errorf("raw line not preserved: %q", kludges[0].RawLine)
	}
	if len(body) != 1 || body[0] != "actual text" {
		t.Errorf("body: %q", body)
	}
}

func TestKludgeUnknownAtWarns(t *testing.T) {
	ctx := validate.NewContext(validate.ModeLenient)
	extractKludges([]string{"@WEIRD: stuff", "text"}, ctx, validate.Loc(FileName))
	report := ctx.Report()
	if len(report.Warnings) != 1 || report.Warnings[0].Kind != validate.UnknownKludge {
		t.Errorf("warnings: %v", report.Warnings)
	}
}

func TestKludgeCaseInsensitive(t *testing.T) {
	kludges, _ := extract(t, []string{"SUBJECT: shouting", "body"})
	if len(kludges) != 1 || kludges[0].Key != "SUBJECT" {
		t.Fatalf("kludges: %+v", kludges)
	}
	m := &Message{Kludges: kludges}
	liftExtended(m)
	if m.ExtendedSubject != "shouting" {
		t.Errorf("extended subject: %q", m.ExtendedSubject)
	}
}

func TestKludgeScanStopsAtFirstNonKludge(t *testing.T) {
	// A kludge-shaped line after body text must stay in the body.
	kludges, body := extract(t, []string{
		"From: The Real Sender",
		"first body line",
		"To: someone quoted",
	})
	if len(kludges) != 1 {
		t.Fatalf("got %d kludges, want 1", len(kludges))
	}
	if len(body) != 2 || body[1] != "To: someone quoted" {
		t.Errorf("body: %q", body)
	}
}

func TestKludgeBlankConsumedOnlyOnce(t *testing.T) {
	kludges, body := extract(t, []string{"To: X", "", "", "text"})
	if len(kludges) != 1 {
		t.Fatalf("kludges: %+v", kludges)
	}
	if len(body) != 2 || body[0] != "" || body[1] != "text" {
		t.Errorf("body: %q", body)
	}
}
