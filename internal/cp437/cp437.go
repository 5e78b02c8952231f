// Package cp437 converts between IBM code page 437 bytes and Unicode.
//
// The table covers all 256 code points, including the glyph forms of
// the control range (0x01 is U+263A, not SOH). That is what BBS
// software stores on disk: the byte 0xE3 used as the QWK line
// terminator decodes to U+03C0, and encoding U+03C0 yields 0xE3 again.
// Every byte round-trips exactly.
package cp437

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Fallback selects how unmappable input is handled.
type Fallback int

const (
	// FallbackStrict fails on any rune without a CP437 equivalent.
	// Decoding never fails: every byte has a mapping.
	FallbackStrict Fallback = iota
	// FallbackReplace substitutes '?' when encoding and U+FFFD when
	// decoding would fail (which it cannot for 8-bit input).
	FallbackReplace
	// FallbackSkip drops unmappable input.
	FallbackSkip
)

func (f Fallback) String() string {
	switch f {
	case FallbackStrict:
		return "strict"
	case FallbackReplace:
		return "replace"
	case FallbackSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseFallback maps a configuration string to a Fallback.
func ParseFallback(s string) (Fallback, error) {
	switch strings.ToLower(s) {
	case "strict":
		return FallbackStrict, nil
	case "replace":
		return FallbackReplace, nil
	case "skip":
		return FallbackSkip, nil
	}
	return FallbackStrict, fmt.Errorf("cp437: unknown fallback %q", s)
}

// ErrUnmappable reports a rune with no CP437 equivalent under the
// strict fallback policy.
var ErrUnmappable = errors.New("cp437: rune not representable")

// LineTerminator is the QWK body line terminator byte.
const LineTerminator = 0xE3

// LineTerminatorRune is the decoded form of LineTerminator. Writers
// must emit U+03C0, never U+00E3.
const LineTerminatorRune = 'π'

// table maps every byte to its CP437 glyph code point. The low half
// uses the graphic interpretation of the control range, except that
// 0x0A and 0x0D pass through as LF and CR: the line-oriented packet
// files depend on them, and a glyph there would destroy line
// structure. The high half matches the IBM PC line-drawing and symbol
// set.
var table = [256]rune{
	0x0000, 0x263A, 0x263B, 0x2665, 0x2666, 0x2663, 0x2660, 0x2022,
	0x25D8, 0x25CB, 0x000A, 0x2642, 0x2640, 0x000D, 0x266B, 0x263C,
	0x25BA, 0x25C4, 0x2195, 0x203C, 0x00B6, 0x00A7, 0x25AC, 0x21A8,
	0x2191, 0x2193, 0x2192, 0x2190, 0x221F, 0x2194, 0x25B2, 0x25BC,
	0x0020, 0x0021, 0x0022, 0x0023, 0x0024, 0x0025, 0x0026, 0x0027,
	0x0028, 0x0029, 0x002A, 0x002B, 0x002C, 0x002D, 0x002E, 0x002F,
	0x0030, 0x0031, 0x0032, 0x0033, 0x0034, 0x0035, 0x0036, 0x0037,
	0x0038, 0x0039, 0x003A, 0x003B, 0x003C, 0x003D, 0x003E, 0x003F,
	0x0040, 0x0041, 0x0042, 0x0043, 0x0044, 0x0045, 0x0046, 0x0047,
	0x0048, 0x0049, 0x004A, 0x004B, 0x004C, 0x004D, 0x004E, 0x004F,
	0x0050, 0x0051, 0x0052, 0x0053, 0x0054, 0x0055, 0x0056, 0x0057,
	0x0058, 0x0059, 0x005A, 0x005B, 0x005C, 0x005D, 0x005E, 0x005F,
	0x0060, 0x0061, 0x0062, 0x0063, 0x0064, 0x0065, 0x0066, 0x0067,
	0x0068, 0x0069, 0x006A, 0x006B, 0x006C, 0x006D, 0x006E, 0x006F,
	0x0070, 0x0071, 0x0072, 0x0073, 0x0074, 0x0075, 0x0076, 0x0077,
	0x0078, 0x0079, 0x007A, 0x007B, 0x007C, 0x007D, 0x007E, 0x2302,
	0x00C7, 0x00FC, 0x00E9, 0x00E2, 0x00E4, 0x00E0, 0x00E5, 0x00E7,
	0x00EA, 0x00EB, 0x00E8, 0x00EF, 0x00EE, 0x00EC, 0x00C4, 0x00C5,
	0x00C9, 0x00E6, 0x00C6, 0x00F4, 0x00F6, 0x00F2, 0x00FB, 0x00F9,
	0x00FF, 0x00D6, 0x00DC, 0x00A2, 0x00A3, 0x00A5, 0x20A7, 0x0192,
	0x00E1, 0x00ED, 0x00F3, 0x00FA, 0x00F1, 0x00D1, 0x00AA, 0x00BA,
	0x00BF, 0x2310, 0x00AC, 0x00BD, 0x00BC, 0x00A1, 0x00AB, 0x00BB,
	0x2591, 0x2592, 0x2593, 0x2502, 0x2524, 0x2561, 0x2562, 0x2556,
	0x2555, 0x2563, 0x2551, 0x2557, 0x255D, 0x255C, 0x255B, 0x2510,
	0x2514, 0x2534, 0x252C, 0x251C, 0x2500, 0x253C, 0x255E, 0x255F,
	0x255A, 0x2554, 0x2569, 0x2566, 0x2560, 0x2550, 0x256C, 0x2567,
	0x2568, 0x2564, 0x2565, 0x2559, 0x2558, 0x2552, 0x2553, 0x256B,
	0x256A, 0x2518, 0x250C, 0x2588, 0x2584, 0x258C, 0x2590, 0x2580,
	0x03B1, 0x00DF, 0x0393, 0x03C0, 0x03A3, 0x03C3, 0x00B5, 0x03C4,
	0x03A6, 0x0398, 0x03A9, 0x03B4, 0x221E, 0x03C6, 0x03B5, 0x2229,
	0x2261, 0x00B1, 0x2265, 0x2264, 0x2320, 0x2321, 0x00F7, 0x2248,
	0x00B0, 0x2219, 0x00B7, 0x221A, 0x207F, 0x00B2, 0x25A0, 0x00A0,
}

// reverse is the inverse of table, built once at init.
var reverse map[rune]byte

func init() {
	reverse = make(map[rune]byte, 256)
	for b := 0; b < 256; b++ {
		reverse[table[b]] = byte(b)
	}
}

// DecodeByte returns the code point for a single CP437 byte.
func DecodeByte(b byte) rune {
	return table[b]
}

// EncodeRune returns the CP437 byte for a code point and whether the
// code point is representable.
func EncodeRune(r rune) (byte, bool) {
	b, ok := reverse[r]
	return b, ok
}

// Decode converts CP437 bytes to a Unicode string. Every byte has a
// mapping, so Decode cannot fail regardless of fallback policy.
func Decode(input []byte) string {
	result := make([]rune, 0, len(input))
	for _, b := range input {
		result = append(result, table[b])
	}
	return string(result)
}

// Encode converts a Unicode string to CP437 bytes, applying the
// fallback policy to runes without an equivalent.
func Encode(s string, fb Fallback) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := reverse[r]
		if !ok {
			switch fb {
			case FallbackStrict:
				return nil, fmt.Errorf("%w: %q (U+%04X)", ErrUnmappable, r, r)
			case FallbackReplace:
				b = '?'
			case FallbackSkip:
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}

// validRune reports whether r is a complete rune (used by the
// transformers to distinguish partial UTF-8 at a chunk boundary).
func validRune(r rune, size int) bool {
	return !(r == utf8.RuneError && size <= 1)
}
