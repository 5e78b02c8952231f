// Package doorid parses the DOOR.ID capability file written by the
// mail door. The format is plain text KEY = VALUE pairs; a handful of
// keys carry capability semantics.
package doorid

import (
	"strings"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/validate"
)

// FileName is the canonical name inside a packet.
const FileName = "DOOR.ID"

// Capability is a bit set of door features advertised in DOOR.ID.
type Capability uint32

const (
	// CapAdd means the door accepts ADD control messages.
	CapAdd Capability = 1 << iota
	// CapDrop means the door accepts DROP control messages.
	CapDrop
	// CapRequest means the door accepts file-request control messages.
	CapRequest
	// CapReset means the door accepts RESET control messages.
	CapReset
	// CapReceipt means the door honours return receipts.
	CapReceipt
	// CapMixedCase means the door preserves mixed-case text.
	CapMixedCase
	// CapFidoTag means the door handles FidoNet tear/origin lines.
	CapFidoTag
)

// Has reports whether all bits in want are set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

func (c Capability) String() string {
	names := []struct {
		bit  Capability
		name string
	}{
		{CapAdd, "ADD"},
		{CapDrop, "DROP"},
		{CapRequest, "REQUEST"},
		{CapReset, "RESET"},
		{CapReceipt, "RECEIPT"},
		{CapMixedCase, "MIXEDCASE"},
		{CapFidoTag, "FIDOTAG"},
	}
	var parts []string
	for _, n := range names {
		if c&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Pair is one raw KEY/VALUE line in original order.
type Pair struct {
	Key   string
	Value string
}

// DoorID is the parsed capability file.
type DoorID struct {
	Door         string
	Version      string
	System       string
	ControlName  string
	Capabilities Capability
	Pairs        []Pair
	RawLines     []string
}

// Parse decodes DOOR.ID bytes. Required keys are DOOR and VERSION;
// their absence is an error-level anomaly.
func Parse(data []byte, ctx *validate.Context) (*DoorID, error) {
	d := &DoorID{}
	lines := strings.Split(strings.ReplaceAll(cp437.Decode(data), "\r\n", "\n"), "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		d.RawLines = append(d.RawLines, line)
		loc := validate.Locator{File: FileName, RecordOffset: -1, Line: i + 1}

		// The lone RECEIPT token has no value.
		if strings.EqualFold(trimmed, "RECEIPT") {
			d.Capabilities |= CapReceipt
			d.Pairs = append(d.Pairs, Pair{Key: "RECEIPT"})
			continue
		}

		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			if err := ctx.Error(validate.InvalidFieldFormat, loc, "no '=' in %q", trimmed); err != nil {
				return nil, err
			}
			continue
		}
		// The format calls for spaces around '='; doors that omit them
		// are accepted outside strict mode.
		if !strings.HasSuffix(key, " ") || !strings.HasPrefix(value, " ") {
			if err := ctx.Error(validate.InvalidFieldFormat, loc, "missing spaces around '=' in %q", trimmed); err != nil {
				return nil, err
			}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		d.Pairs = append(d.Pairs, Pair{Key: key, Value: value})

		switch key {
		case "DOOR":
			d.Door = value
		case "VERSION":
			d.Version = value
		case "SYSTEM":
			d.System = value
		case "CONTROLNAME":
			d.ControlName = value
		case "CONTROLTYPE":
			switch strings.ToUpper(value) {
			case "ADD":
				d.Capabilities |= CapAdd
			case "DROP":
				d.Capabilities |= CapDrop
			case "REQUEST":
				d.Capabilities |= CapRequest
			case "RESET":
				d.Capabilities |= CapReset
			default:
				ctx.Warn(validate.InvalidFieldFormat, loc, "unknown CONTROLTYPE %q", value)
			}
		case "MIXEDCASE":
			if strings.EqualFold(value, "YES") {
				d.Capabilities |= CapMixedCase
			}
		case "FIDOTAG":
			if strings.EqualFold(value, "YES") {
				d.Capabilities |= CapFidoTag
			}
		default:
			ctx.Warn(validate.UnrecognisedControlLine, loc, "unknown key %q", key)
		}
	}

	loc := validate.Loc(FileName)
	if d.Door == "" {
		if err := ctx.Error(validate.MissingRequiredField, loc, "DOOR is required"); err != nil {
			return nil, err
		}
	}
	if d.Version == "" {
		if err := ctx.Error(validate.MissingRequiredField, loc, "VERSION is required"); err != nil {
			return nil, err
		}
	}
	return d, nil
}
