// Package control parses and writes the CONTROL.DAT manifest: a
// positional, CRLF-terminated, CP437-encoded text file describing the
// BBS, the packet, and the conference list.
package control

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/validate"
)

// FileName is the canonical manifest name inside a packet.
const FileName = "CONTROL.DAT"

// TimestampLayout is the packet creation stamp format on line 6.
const TimestampLayout = "01-02-2006,15:04:05"

// Conference is one conference number/name pair. Conference 0 is valid.
type Conference struct {
	Number uint16
	Name   string
}

// Manifest is the parsed CONTROL.DAT. Every non-empty original line is
// retained verbatim in RawLines for round-trip.
type Manifest struct {
	BBSName      string
	City         string
	Phone        string
	Sysop        string
	Registration string
	BBSID        string
	CreatedAt    time.Time
	HasCreatedAt bool
	UserName     string
	MenuFile     string
	NetMailConf  int
	TotalCount   int
	Conferences  []Conference

	Welcome string
	News    string
	Goodbye string

	RawLines []string
}

// ConferenceByNumber returns the conference with the given number.
func (m *Manifest) ConferenceByNumber(n uint16) (Conference, bool) {
	for _, c := range m.Conferences {
		if c.Number == n {
			return c, true
		}
	}
	return Conference{}, false
}

// Parse decodes raw CONTROL.DAT bytes. Anomalies are routed through
// ctx; a nil manifest is returned only when the mode aborts.
func Parse(data []byte, ctx *validate.Context) (*Manifest, error) {
	text := cp437.Decode(data)
	lines := splitLines(text)

	m := &Manifest{}
	for _, l := range lines {
		if l != "" {
			m.RawLines = append(m.RawLines, l)
		}
	}

	loc := func(n int) validate.Locator {
		return validate.Locator{File: FileName, RecordOffset: -1, Line: n}
	}

	get := func(n int) (string, bool) {
		if n-1 < len(lines) {
			return lines[n-1], true
		}
		return "", false
	}

	require := func(n int, field string) (string, error) {
		s, ok := get(n)
		if !ok {
			return "", ctx.Violation(validate.MissingRequiredField, loc(n), "missing %s", field)
		}
		return strings.TrimSpace(s), nil
	}

	var err error
	if m.BBSName, err = require(1, "BBS name"); err != nil {
		return nil, err
	}
	if m.City, err = require(2, "city"); err != nil {
		return nil, err
	}
	if m.Phone, err = require(3, "phone"); err != nil {
		return nil, err
	}
	if m.Sysop, err = require(4, "sysop"); err != nil {
		return nil, err
	}

	regLine, err := require(5, "registration,bbsid")
	if err != nil {
		return nil, err
	}
	if reg, id, ok := strings.Cut(regLine, ","); ok {
		m.Registration = strings.TrimSpace(reg)
		m.BBSID = strings.TrimSpace(id)
	} else {
		// Some doors put only the BBS id on line 5.
		m.BBSID = regLine
		ctx.Warn(validate.InvalidFieldFormat, loc(5), "expected registration,bbsid, got %q", regLine)
	}

	stamp, err := require(6, "creation timestamp")
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(TimestampLayout, stamp); perr == nil {
		m.CreatedAt = t
		m.HasCreatedAt = true
	} else {
		ctx.Warn(validate.InvalidFieldFormat, loc(6), "bad timestamp %q", stamp)
	}

	if m.UserName, err = require(7, "user name"); err != nil {
		return nil, err
	}
	if m.MenuFile, err = require(8, "menu file"); err != nil {
		return nil, err
	}

	m.NetMailConf, err = requireInt(ctx, loc(9), lines, 9, "NetMail conference")
	if err != nil {
		return nil, err
	}
	m.TotalCount, err = requireInt(ctx, loc(10), lines, 10, "total message count")
	if err != nil {
		return nil, err
	}
	confMinusOne, err := requireInt(ctx, loc(11), lines, 11, "conference count")
	if err != nil {
		return nil, err
	}
	if confMinusOne < 0 {
		if aerr := ctx.Error(validate.InvalidFieldFormat, loc(11), "conference count %d", confMinusOne); aerr != nil {
			return nil, aerr
		}
		confMinusOne = -1
	}

	// Lines 12 onward alternate conference number / conference name for
	// confMinusOne+1 pairs.
	line := 12
	for i := 0; i <= confMinusOne; i++ {
		numStr, ok := get(line)
		if !ok {
			if aerr := ctx.Error(validate.MissingRequiredField, loc(line), "conference %d number missing", i); aerr != nil {
				return nil, aerr
			}
			break
		}
		name, _ := get(line + 1)
		num, perr := strconv.Atoi(strings.TrimSpace(numStr))
		if perr != nil || num < 0 || num > 0xFFFF {
			if aerr := ctx.Error(validate.InvalidFieldFormat, loc(line), "bad conference number %q", numStr); aerr != nil {
				return nil, aerr
			}
			line += 2
			continue
		}
		m.Conferences = append(m.Conferences, Conference{
			Number: uint16(num),
			Name:   strings.TrimSpace(name),
		})
		line += 2
	}

	// Optional display file names follow the conference list.
	optional := []*string{&m.Welcome, &m.News, &m.Goodbye}
	for _, dst := range optional {
		s, ok := get(line)
		if !ok {
			break
		}
		*dst = strings.TrimSpace(s)
		line++
	}

	// Anything after the goodbye file is door-specific and recoverable.
	for line <= len(lines) {
		s, _ := get(line)
		if strings.TrimSpace(s) != "" {
			ctx.Warn(validate.UnrecognisedControlLine, loc(line), "extra line %q", s)
		}
		line++
	}

	return m, nil
}

func requireInt(ctx *validate.Context, loc validate.Locator, lines []string, n int, field string) (int, error) {
	if n-1 >= len(lines) {
		return 0, ctx.Violation(validate.MissingRequiredField, loc, "missing %s", field)
	}
	s := strings.TrimSpace(lines[n-1])
	v, err := strconv.Atoi(s)
	if err != nil {
		if aerr := ctx.Error(validate.InvalidFieldFormat, loc, "%s: %q is not a number", field, s); aerr != nil {
			return 0, aerr
		}
		return 0, nil
	}
	return v, nil
}

// Write renders a manifest back to CONTROL.DAT bytes: CP437, CRLF
// line endings, positional layout.
func Write(m *Manifest, fb cp437.Fallback) ([]byte, error) {
	var b strings.Builder
	put := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}
	put(m.BBSName)
	put(m.City)
	put(m.Phone)
	put(m.Sysop)
	put(m.Registration + "," + m.BBSID)
	if m.HasCreatedAt {
		put(m.CreatedAt.Format(TimestampLayout))
	} else {
		put("")
	}
	put(m.UserName)
	put(m.MenuFile)
	put(strconv.Itoa(m.NetMailConf))
	put(strconv.Itoa(m.TotalCount))
	put(strconv.Itoa(len(m.Conferences) - 1))
	for _, c := range m.Conferences {
		put(strconv.Itoa(int(c.Number)))
		put(c.Name)
	}
	put(m.Welcome)
	put(m.News)
	put(m.Goodbye)

	out, err := cp437.Encode(b.String(), fb)
	if err != nil {
		return nil, fmt.Errorf("control: encode: %w", err)
	}
	return out, nil
}

// splitLines splits on CRLF, tolerating bare LF from doors that never
// ran on DOS. A trailing terminator does not produce a final empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
