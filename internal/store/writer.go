package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/recordio"
)

// DefaultCopyright is written as the reserved leading record when the
// caller supplies none.
const DefaultCopyright = "Produced by qwk. Copyright (c) stlalpha."

// Writer emits a message store: the leading copyright record followed
// by header and body records for each message. Body padding uses
// spaces and lines are joined with the 0xE3 terminator, so a store
// written from parsed messages round-trips byte-exactly.
type Writer struct {
	w        io.Writer
	fb       cp437.Fallback
	records  int64
	messages int
}

// NewWriter writes the copyright record and returns a store writer.
func NewWriter(w io.Writer, copyright string, fb cp437.Fallback) (*Writer, error) {
	if copyright == "" {
		copyright = DefaultCopyright
	}
	sw := &Writer{w: w, fb: fb}
	rec, err := textRecord(copyright, fb)
	if err != nil {
		return nil, fmt.Errorf("store: copyright record: %w", err)
	}
	if err := sw.writeRecord(rec); err != nil {
		return nil, err
	}
	return sw, nil
}

// WriteMessage appends one message and returns the record offset of
// its header within the store.
func (sw *Writer) WriteMessage(m *Message) (int64, error) {
	body := m.RawBody
	if body == nil {
		var err error
		body, err = encodeBody(m, sw.fb)
		if err != nil {
			return 0, err
		}
	}
	if len(body)%recordio.RecordSize != 0 {
		return 0, fmt.Errorf("store: body length %d is not record-aligned", len(body))
	}

	blocks := len(body)/recordio.RecordSize + 1
	hdr := *m.Header
	if hdr.Raw == ([recordio.RecordSize]byte{}) {
		hdr.BlockCount = blocks
	} else if hdr.BlockCount != blocks {
		return 0, fmt.Errorf("store: header declares %d blocks, body has %d", hdr.BlockCount, blocks)
	}

	rec, err := EncodeHeader(&hdr, sw.fb)
	if err != nil {
		return 0, err
	}
	headerOffset := sw.records
	if err := sw.writeRecord(rec); err != nil {
		return 0, err
	}
	for pos := 0; pos < len(body); pos += recordio.RecordSize {
		var block [recordio.RecordSize]byte
		copy(block[:], body[pos:pos+recordio.RecordSize])
		if err := sw.writeRecord(block); err != nil {
			return 0, err
		}
	}
	sw.messages++
	return headerOffset, nil
}

// Records returns the number of records written, copyright included.
func (sw *Writer) Records() int64 {
	return sw.records
}

// Messages returns the number of messages written.
func (sw *Writer) Messages() int {
	return sw.messages
}

func (sw *Writer) writeRecord(rec [recordio.RecordSize]byte) error {
	if _, err := sw.w.Write(rec[:]); err != nil {
		return fmt.Errorf("store: write record: %w", err)
	}
	sw.records++
	return nil
}

// encodeBody renders body lines to CP437 with 0xE3 terminators, padded
// with spaces to a whole number of records. Kludge lines precede the
// body so QWKE long headers survive the round-trip.
func encodeBody(m *Message, fb cp437.Fallback) ([]byte, error) {
	var lines []string
	for _, k := range m.Kludges {
		lines = append(lines, k.RawLine)
	}
	if len(m.Kludges) > 0 && len(m.Body) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, m.Body...)
	if len(lines) == 0 {
		lines = []string{""}
	}

	text := strings.Join(lines, string(cp437.LineTerminatorRune)) + string(cp437.LineTerminatorRune)
	enc, err := cp437.Encode(text, fb)
	if err != nil {
		return nil, fmt.Errorf("store: body: %w", err)
	}
	if pad := len(enc) % recordio.RecordSize; pad != 0 {
		enc = append(enc, bytesOf(' ', recordio.RecordSize-pad)...)
	}
	return enc, nil
}

// textRecord encodes s into a single space-padded record.
func textRecord(s string, fb cp437.Fallback) ([recordio.RecordSize]byte, error) {
	var rec [recordio.RecordSize]byte
	for i := range rec {
		rec[i] = ' '
	}
	enc, err := cp437.Encode(s, fb)
	if err != nil {
		return rec, err
	}
	if len(enc) > recordio.RecordSize {
		enc = enc[:recordio.RecordSize]
	}
	copy(rec[:], enc)
	return rec, nil
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
