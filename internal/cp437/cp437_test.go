package cp437

import (
	"bytes"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func TestRoundTripAll256(t *testing.T) {
	for b := 0; b < 256; b++ {
		decoded := Decode([]byte{byte(b)})
		encoded, err := Encode(decoded, FallbackStrict)
		if err != nil {
			t.Fatalf("byte 0x%02X: encode: %v", b, err)
		}
		if len(encoded) != 1 || encoded[0] != byte(b) {
			t.Errorf("byte 0x%02X: round-trip gave % X", b, encoded)
		}
	}
}

func TestNotableEntries(t *testing.T) {
	if r := DecodeByte(0x01); r != '☺' {
		t.Errorf("0x01: got %q, want U+263A", r)
	}
	if r := DecodeByte(0xE3); r != 'π' {
		t.Errorf("0xE3: got %q, want U+03C0", r)
	}
	if r := DecodeByte(0xB0); r != '░' {
		t.Errorf("0xB0: got %q, want U+2591", r)
	}
	// CR and LF pass through so line-oriented files keep their shape.
	if DecodeByte(0x0D) != '\r' || DecodeByte(0x0A) != '\n' {
		t.Error("CR/LF must decode to themselves")
	}
}

func TestLineTerminatorNeverLatinATilde(t *testing.T) {
	// The QWK terminator decodes to U+03C0, not U+00E3.
	if Decode([]byte{LineTerminator}) == "ã" {
		t.Fatal("0xE3 decoded to U+00E3")
	}
	b, ok := EncodeRune(LineTerminatorRune)
	if !ok || b != LineTerminator {
		t.Fatalf("U+03C0 encoded to 0x%02X", b)
	}
	if _, ok := EncodeRune('ã'); ok {
		// U+00E3 has no CP437 mapping; it must not silently hit 0xE3.
		t.Fatal("U+00E3 must be unmappable")
	}
}

func TestEncodeFallbacks(t *testing.T) {
	input := "ok世ok" // CJK has no CP437 form

	if _, err := Encode(input, FallbackStrict); err == nil {
		t.Error("strict: want error")
	}
	got, err := Encode(input, FallbackReplace)
	if err != nil || string(got) != "ok?ok" {
		t.Errorf("replace: got %q, %v", got, err)
	}
	got, err = Encode(input, FallbackSkip)
	if err != nil || string(got) != "okok" {
		t.Errorf("skip: got %q, %v", got, err)
	}
}

func TestAgainstCharmapOracle(t *testing.T) {
	// For the printable ASCII and high ranges, the table must agree
	// with x/text's CodePage437; only the control range differs by
	// design.
	dec := charmap.CodePage437.NewDecoder()
	for b := 0x20; b < 0x100; b++ {
		if b == 0x7F {
			// x/text maps DEL to U+007F; the glyph table uses U+2302.
			continue
		}
		want, _, err := transform.Bytes(dec, []byte{byte(b)})
		if err != nil {
			t.Fatalf("charmap decode 0x%02X: %v", b, err)
		}
		got := Decode([]byte{byte(b)})
		if got != string(want) {
			t.Errorf("byte 0x%02X: got %q, charmap says %q", b, got, want)
		}
	}
}

func TestTransformerDecode(t *testing.T) {
	in := []byte{'H', 'i', 0xE3, 0x01}
	out, _, err := transform.Bytes(NewDecoder(), in)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if string(out) != "Hiπ☺" {
		t.Errorf("got %q", out)
	}
}

func TestTransformerEncode(t *testing.T) {
	out, _, err := transform.Bytes(NewEncoder(FallbackStrict), []byte("Hiπ☺"))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if !bytes.Equal(out, []byte{'H', 'i', 0xE3, 0x01}) {
		t.Errorf("got % X", out)
	}

	if _, _, err := transform.Bytes(NewEncoder(FallbackStrict), []byte("世")); err == nil {
		t.Error("strict transformer: want error")
	}
	out, _, err = transform.Bytes(NewEncoder(FallbackReplace), []byte("a世b"))
	if err != nil || string(out) != "a?b" {
		t.Errorf("replace transformer: got %q, %v", out, err)
	}
}

func TestTransformerChunkedUTF8(t *testing.T) {
	// Multi-byte runes split across Transform calls must not corrupt.
	enc := NewEncoder(FallbackStrict)
	src := []byte("ππππ")
	var out bytes.Buffer
	w := transform.NewWriter(&out, enc)
	for _, b := range src {
		if _, err := w.Write([]byte{b}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !bytes.Equal(out.Bytes(), []byte{0xE3, 0xE3, 0xE3, 0xE3}) {
		t.Errorf("got % X", out.Bytes())
	}
}

func TestParseFallback(t *testing.T) {
	for _, s := range []string{"strict", "REPLACE", "Skip"} {
		if _, err := ParseFallback(s); err != nil {
			t.Errorf("ParseFallback(%q): %v", s, err)
		}
	}
	if _, err := ParseFallback("bogus"); err == nil {
		t.Error("bogus fallback must error")
	}
}
