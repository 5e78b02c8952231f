package store

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/recordio"
	"github.com/stlalpha/qwk/internal/validate"
)

// Header field layout within the 128-byte record.
const (
	offStatus     = 0
	offNumber     = 1 // 7 chars, right-space-padded ASCII integer
	offDate       = 8 // 8 chars, MM-DD-YY
	offTime       = 16 // 5 chars, HH:MM
	offTo         = 21 // 25 chars
	offFrom       = 46 // 25 chars
	offSubject    = 71 // 25 chars
	offPassword   = 96 // 12 chars
	offReference  = 108 // 8 chars ASCII
	offBlockCount = 116 // 6 chars ASCII, includes the header record
	offActive     = 122
	offConference = 123 // little-endian uint16
	offReserved   = 125 // 3 bytes
)

// ActiveFlag is the on-disk byte marking an active message; 0x00 marks
// a deleted one.
const ActiveFlag = 0xE1

// MaxMessageNumber is the largest value the 7-character number field
// can carry.
const MaxMessageNumber = 9_999_999

// DateLayout and TimeLayout are the header timestamp formats.
const (
	DateLayout = "01-02-06"
	TimeLayout = "15:04"
)

// Header is a parsed 128-byte message header. Raw retains the record
// bytes exactly as read; every parsed field is derivable from them.
type Header struct {
	Raw [recordio.RecordSize]byte

	StatusCode byte
	Status     Status
	Number     int // 0 when the field was all spaces
	Date       time.Time
	HasDate    bool
	To         string
	From       string
	Subject    string
	Password   string
	Reference  string
	BlockCount int // body blocks + 1 for the header itself
	Active     bool
	Conference uint16
}

// BodyBlocks is the number of 128-byte body records that follow the
// header.
func (h *Header) BodyBlocks() int {
	return h.BlockCount - 1
}

// implausibility explains why a header record cannot be a message
// header; empty means the record is plausible.
func implausibility(rec []byte) string {
	if _, ok := StatusFromCode(rec[offStatus]); !ok {
		return fmt.Sprintf("status byte 0x%02X not in the defined set", rec[offStatus])
	}
	if !numericOrBlank(rec[offNumber : offNumber+7]) {
		return fmt.Sprintf("message number field %q is neither numeric nor blank", rec[offNumber:offNumber+7])
	}
	blocks, err := asciiInt(rec[offBlockCount : offBlockCount+6])
	if err != nil || blocks < 1 {
		return fmt.Sprintf("block count field %q does not parse as an integer >= 1", rec[offBlockCount:offBlockCount+6])
	}
	if rec[offActive] != ActiveFlag && rec[offActive] != 0x00 {
		return fmt.Sprintf("active flag 0x%02X", rec[offActive])
	}
	return ""
}

// ParseHeader decodes one header record. The record must already have
// passed the plausibility check; a bad date or time degrades to a
// warning via ctx. The reference field is kept as trimmed text and is
// not checked.
func ParseHeader(rec []byte, ctx *validate.Context, loc validate.Locator) (*Header, error) {
	if len(rec) != recordio.RecordSize {
		return nil, fmt.Errorf("store: header record size %d", len(rec))
	}

	h := &Header{}
	copy(h.Raw[:], rec)

	h.StatusCode = rec[offStatus]
	h.Status, _ = StatusFromCode(h.StatusCode)

	numField := rec[offNumber : offNumber+7]
	if !isBlank(numField) {
		n, err := asciiInt(numField)
		if err != nil {
			return nil, fmt.Errorf("store: message number %q: %w", numField, err)
		}
		h.Number = n
	}

	dateStr := strings.TrimSpace(cp437.Decode(rec[offDate : offDate+8]))
	timeStr := strings.TrimSpace(cp437.Decode(rec[offTime : offTime+5]))
	if t, err := time.Parse(DateLayout+" "+TimeLayout, dateStr+" "+timeStr); err == nil {
		h.Date = t
		h.HasDate = true
	} else {
		ctx.Warn(validate.InvalidFieldFormat, loc, "bad date/time %q %q", dateStr, timeStr)
	}

	h.To = trimField(rec[offTo : offTo+25])
	h.From = trimField(rec[offFrom : offFrom+25])
	h.Subject = trimField(rec[offSubject : offSubject+25])
	h.Password = trimField(rec[offPassword : offPassword+12])
	h.Reference = strings.TrimSpace(string(rec[offReference : offReference+8]))

	blocks, err := asciiInt(rec[offBlockCount : offBlockCount+6])
	if err != nil {
		return nil, fmt.Errorf("store: block count %q: %w", rec[offBlockCount:offBlockCount+6], err)
	}
	h.BlockCount = blocks
	h.Active = rec[offActive] == ActiveFlag
	h.Conference = binary.LittleEndian.Uint16(rec[offConference : offConference+2])

	return h, nil
}

// EncodeHeader renders h back to its 128-byte on-disk form. When
// h.Raw is non-zero it is returned verbatim so parsed headers
// round-trip byte-exactly.
func EncodeHeader(h *Header, fb cp437.Fallback) ([recordio.RecordSize]byte, error) {
	var rec [recordio.RecordSize]byte
	if h.Raw != ([recordio.RecordSize]byte{}) {
		return h.Raw, nil
	}

	for i := range rec {
		rec[i] = ' '
	}
	rec[offStatus] = h.Status.Code()
	if h.StatusCode != 0 {
		rec[offStatus] = h.StatusCode
	}
	if h.Number != 0 {
		if h.Number < 0 || h.Number > MaxMessageNumber {
			return rec, fmt.Errorf("store: message number %d out of range", h.Number)
		}
		copy(rec[offNumber:], fmt.Sprintf("%-7d", h.Number))
	}
	if h.HasDate {
		copy(rec[offDate:], h.Date.Format(DateLayout))
		copy(rec[offTime:], h.Date.Format(TimeLayout))
	}
	if err := putField(rec[offTo:offTo+25], h.To, fb); err != nil {
		return rec, err
	}
	if err := putField(rec[offFrom:offFrom+25], h.From, fb); err != nil {
		return rec, err
	}
	if err := putField(rec[offSubject:offSubject+25], h.Subject, fb); err != nil {
		return rec, err
	}
	if err := putField(rec[offPassword:offPassword+12], h.Password, fb); err != nil {
		return rec, err
	}
	copy(rec[offReference:], fmt.Sprintf("%-8s", h.Reference))
	copy(rec[offBlockCount:], fmt.Sprintf("%-6d", h.BlockCount))
	if h.Active {
		rec[offActive] = ActiveFlag
	} else {
		rec[offActive] = 0x00
	}
	binary.LittleEndian.PutUint16(rec[offConference:], h.Conference)
	return rec, nil
}

func putField(dst []byte, s string, fb cp437.Fallback) error {
	enc, err := cp437.Encode(s, fb)
	if err != nil {
		return fmt.Errorf("store: field %q: %w", s, err)
	}
	if len(enc) > len(dst) {
		enc = enc[:len(dst)]
	}
	copy(dst, enc)
	return nil
}

func trimField(b []byte) string {
	return strings.TrimRight(cp437.Decode(b), " \x00")
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' {
			return false
		}
	}
	return true
}

// numericOrBlank reports whether b is all spaces, or a single run of
// digits padded with spaces on either side. Both paddings occur in the
// wild: the field is documented right-space-padded but some doors
// right-align it.
func numericOrBlank(b []byte) bool {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	if i == len(b) {
		return true
	}
	digits := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
		digits++
	}
	for i < len(b) && b[i] == ' ' {
		i++
	}
	return digits > 0 && i == len(b)
}

// asciiInt parses a space-padded ASCII integer field.
func asciiInt(b []byte) (int, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	return strconv.Atoi(s)
}
