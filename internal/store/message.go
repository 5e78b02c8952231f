// Package store walks and writes the QWK message store: one reserved
// copyright record followed by, per message, a 128-byte header record
// and a declared number of 128-byte body records.
package store

import (
	"strings"

	"github.com/stlalpha/qwk/internal/cp437"
)

// Kludge is one metadata line lifted from the head of a message body.
// RawLine preserves the exact source line.
type Kludge struct {
	Key     string
	Value   string
	RawLine string
}

// Message is one fully parsed store entry. Messages are immutable once
// constructed; Header.Raw retains the original header bytes.
type Message struct {
	Header *Header

	// Body is the message text after kludge extraction, split on the
	// decoded line terminator.
	Body []string

	// RawBody is the concatenated body-record bytes before decoding,
	// retained for round-trip. Trailing padding is included.
	RawBody []byte

	Kludges []Kludge

	// QWKE long headers lifted from To/From/Subject kludges; empty
	// when the packet carried none.
	ExtendedTo      string
	ExtendedFrom    string
	ExtendedSubject string
}

// DisplayTo returns the QWKE extended recipient when present, else the
// 25-character header field.
func (m *Message) DisplayTo() string {
	if m.ExtendedTo != "" {
		return m.ExtendedTo
	}
	return m.Header.To
}

// DisplayFrom returns the QWKE extended sender when present.
func (m *Message) DisplayFrom() string {
	if m.ExtendedFrom != "" {
		return m.ExtendedFrom
	}
	return m.Header.From
}

// DisplaySubject returns the QWKE extended subject when present.
func (m *Message) DisplaySubject() string {
	if m.ExtendedSubject != "" {
		return m.ExtendedSubject
	}
	return m.Header.Subject
}

// Text joins the body lines with newlines for display.
func (m *Message) Text() string {
	return strings.Join(m.Body, "\n")
}

// splitBody decodes concatenated body bytes and splits them into
// lines. Lines are separated by the 0xE3 terminator, which decodes to
// U+03C0. Trailing CR/LF on a segment is an artifact of doors that
// emit both and is dropped; trailing space and NUL padding is stripped
// from the final segment only, interior segments otherwise stay
// verbatim.
func splitBody(raw []byte) []string {
	text := cp437.Decode(raw)
	lines := strings.Split(text, string(cp437.LineTerminatorRune))
	last := len(lines) - 1
	lines[last] = strings.TrimRight(lines[last], " \x00")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r\n")
	}
	if lines[last] == "" && last > 0 {
		lines = lines[:last]
	}
	return lines
}
