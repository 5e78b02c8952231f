package store

import (
	"bytes"
	"testing"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/recordio"
	"github.com/stlalpha/qwk/internal/validate"
)

func TestWriterRoundTripParsed(t *testing.T) {
	// A store read and rewritten from parsed messages must be
	// byte-identical.
	body1 := buildBody([]byte("line one\xE3line two\xE3"))
	hdr1 := buildHeader(' ', 1, "ALL", "FIRST", "ONE", 1+len(body1)/recordio.RecordSize, 0)
	body2 := buildBody([]byte("solo\xE3"))
	hdr2 := buildHeader('-', 2, "ALL", "SECOND", "TWO", 1+len(body2)/recordio.RecordSize, 1)
	original := buildStore(hdr1, body1, hdr2, body2)

	msgs, _, err := walkAll(t, original, Limits{}, validate.ModeLenient)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}

	var out bytes.Buffer
	sw, err := NewWriter(&out, "test packet", cp437.FallbackStrict)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, m := range msgs {
		if _, err := sw.WriteMessage(m); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	if !bytes.Equal(out.Bytes(), original) {
		t.Error("rewritten store differs from original")
	}
}

func TestWriterFreshMessage(t *testing.T) {
	m := &Message{
		Header: &Header{
			StatusCode: ' ',
			Number:     1,
			To:         "ALL",
			From:       "WRITER",
			Subject:    "NEW",
			Active:     true,
			Conference: 2,
		},
		Body: []string{"HELLO", "WORLD"},
	}

	var out bytes.Buffer
	sw, err := NewWriter(&out, "", cp437.FallbackStrict)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	off, err := sw.WriteMessage(m)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if off != 1 {
		t.Errorf("header offset: got %d, want 1", off)
	}
	if out.Len()%recordio.RecordSize != 0 {
		t.Fatalf("store length %d not record-aligned", out.Len())
	}

	// The terminator must be the byte 0xE3, never a UTF-8 encoded
	// U+00E3.
	data := out.Bytes()[2*recordio.RecordSize:] // skip copyright + header
	if !bytes.Contains(data, []byte{0xE3}) {
		t.Error("no 0xE3 terminator in encoded body")
	}
	if bytes.Contains(data, []byte{0xC3, 0xA3}) {
		t.Error("body contains UTF-8 U+00E3 instead of raw 0xE3")
	}

	// Re-decoding yields the same lines.
	back, _, err := walkAll(t, out.Bytes(), Limits{}, validate.ModeLenient)
	if err != nil {
		t.Fatalf("walk back: %v", err)
	}
	if len(back) != 1 {
		t.Fatalf("got %d messages", len(back))
	}
	if len(back[0].Body) != 2 || back[0].Body[0] != "HELLO" || back[0].Body[1] != "WORLD" {
		t.Errorf("body: %q", back[0].Body)
	}
	if back[0].Header.BlockCount != 2 {
		t.Errorf("block count: got %d, want 2", back[0].Header.BlockCount)
	}
}

func TestWriterKludgesSurvive(t *testing.T) {
	m := &Message{
		Header: &Header{
			StatusCode: ' ',
			Number:     1,
			To:         "ALL",
			From:       "QWKE",
			Subject:    "TRUNCATED SUBJECT",
			Active:     true,
		},
		Kludges: []Kludge{{Key: "Subject", Value: "The Full Untruncated Subject Line", RawLine: "Subject: The Full Untruncated Subject Line"}},
		Body:    []string{"text"},
	}

	var out bytes.Buffer
	sw, err := NewWriter(&out, "", cp437.FallbackStrict)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := sw.WriteMessage(m); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	back, _, err := walkAll(t, out.Bytes(), Limits{}, validate.ModeLenient)
	if err != nil {
		t.Fatalf("walk back: %v", err)
	}
	if len(back) != 1 {
		t.Fatalf("got %d messages", len(back))
	}
	if back[0].ExtendedSubject != "The Full Untruncated Subject Line" {
		t.Errorf("extended subject lost: %q", back[0].ExtendedSubject)
	}
	if len(back[0].Body) != 1 || back[0].Body[0] != "text" {
		t.Errorf("body: %q", back[0].Body)
	}
}
