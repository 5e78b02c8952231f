package cp437

import (
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// Decoder is a transform.Transformer from CP437 bytes to UTF-8.
type Decoder struct{}

// NewDecoder returns a streaming CP437 decoder for use with
// transform.Reader / transform.Bytes.
func NewDecoder() transform.Transformer {
	return Decoder{}
}

// Transform implements transform.Transformer.
func (Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r := table[src[nSrc]]
		if nDst+utf8.RuneLen(r) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc++
	}
	return nDst, nSrc, nil
}

// Reset implements transform.Transformer.
func (Decoder) Reset() {}

// Encoder is a transform.Transformer from UTF-8 to CP437 bytes under a
// fallback policy.
type Encoder struct {
	Fallback Fallback
}

// NewEncoder returns a streaming CP437 encoder with the given fallback.
func NewEncoder(fb Fallback) transform.Transformer {
	return Encoder{Fallback: fb}
}

// Transform implements transform.Transformer.
func (e Encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if !validRune(r, size) {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			// Invalid UTF-8 input is treated like an unmappable rune.
			r = utf8.RuneError
		}
		b, ok := reverse[r]
		if !ok {
			switch e.Fallback {
			case FallbackStrict:
				return nDst, nSrc, ErrUnmappable
			case FallbackReplace:
				b = '?'
			case FallbackSkip:
				nSrc += size
				continue
			}
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = b
		nDst++
		nSrc += size
	}
	return nDst, nSrc, nil
}

// Reset implements transform.Transformer.
func (Encoder) Reset() {}
