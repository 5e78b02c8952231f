// Package ndx reads and writes QWK per-conference index files. An
// index is a packed sequence of 4-byte MSBIN floats encoding record
// offsets into the message store; a historical 5-byte form appends a
// one-byte conference tag to each record. The record size is detected
// from the file length.
package ndx

import (
	"fmt"

	"github.com/stlalpha/qwk/internal/msbin"
	"github.com/stlalpha/qwk/internal/recordio"
	"github.com/stlalpha/qwk/internal/validate"
)

// Entry is one index record.
type Entry struct {
	// RecordOffset is the offset into the message store in 128-byte
	// record units.
	RecordOffset int64
	// Raw preserves the 4 MSBIN bytes exactly as read.
	Raw [4]byte
	// Conference is the tag byte of the 5-byte form; zero otherwise.
	Conference uint8
}

// ByteOffset is the entry's position in the store in bytes.
func (e Entry) ByteOffset() int64 {
	return e.RecordOffset * recordio.RecordSize
}

// Index is a parsed NDX file.
type Index struct {
	File       string
	RecordSize int // 4 or 5
	Entries    []Entry
}

// FileNameFor returns the canonical index name for a conference.
func FileNameFor(conference uint16) string {
	return fmt.Sprintf("%d.NDX", conference)
}

// Parse decodes an index file. The 4-byte form is preferred when the
// length is divisible by both record sizes, since it is the documented
// primary form.
func Parse(name string, data []byte, ctx *validate.Context) (*Index, error) {
	idx := &Index{File: name}
	loc := validate.Loc(name)

	switch {
	case len(data) == 0:
		idx.RecordSize = 4
		return idx, nil
	case len(data)%4 == 0:
		idx.RecordSize = 4
	case len(data)%5 == 0:
		idx.RecordSize = 5
	default:
		return nil, ctx.Violation(validate.InvalidFieldFormat, loc,
			"length %d is not a multiple of 4 or 5", len(data))
	}

	for pos := 0; pos < len(data); pos += idx.RecordSize {
		var e Entry
		copy(e.Raw[:], data[pos:pos+4])
		if idx.RecordSize == 5 {
			e.Conference = data[pos+4]
		}
		off, err := msbin.RecordOffset(e.Raw)
		if err != nil {
			rec := validate.Locator{File: name, RecordOffset: int64(pos / idx.RecordSize)}
			if aerr := ctx.Error(validate.InvalidFieldFormat, rec, "bad offset: %v", err); aerr != nil {
				return nil, aerr
			}
			continue
		}
		e.RecordOffset = off
		idx.Entries = append(idx.Entries, e)
	}
	return idx, nil
}

// CrossCheck records an IndexMismatch for every entry whose record
// offset lies beyond a store of storeBytes bytes.
func (idx *Index) CrossCheck(storeBytes int64, ctx *validate.Context) error {
	records := storeBytes / recordio.RecordSize
	for i, e := range idx.Entries {
		if e.RecordOffset > records {
			loc := validate.Locator{File: idx.File, RecordOffset: int64(i)}
			if err := ctx.Error(validate.IndexMismatch, loc,
				"offset %d beyond store of %d records", e.RecordOffset, records); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write renders entries back to bytes. Entries with retained raw bytes
// round-trip exactly; entries built in memory are MSBIN-encoded. The
// tagged form is emitted when recordSize is 5.
func Write(entries []Entry, recordSize int) ([]byte, error) {
	if recordSize != 4 && recordSize != 5 {
		return nil, fmt.Errorf("ndx: record size %d", recordSize)
	}
	out := make([]byte, 0, len(entries)*recordSize)
	for _, e := range entries {
		raw := e.Raw
		if raw == ([4]byte{}) && e.RecordOffset != 0 {
			raw = msbin.Encode(float32(e.RecordOffset))
		}
		out = append(out, raw[:]...)
		if recordSize == 5 {
			out = append(out, e.Conference)
		}
	}
	return out, nil
}
