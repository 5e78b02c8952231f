// Package validate accumulates parse anomalies and decides, per
// validation mode, whether an anomaly aborts the parse or is only
// recorded.
package validate

import (
	"fmt"
	"strings"
)

// Mode governs the abort policy for recorded anomalies.
type Mode int

const (
	// ModeStrict aborts on any error-level anomaly.
	ModeStrict Mode = iota
	// ModeLenient records errors and aborts only on unrecoverable
	// format violations. This is the default.
	ModeLenient
	// ModeSalvage records everything and aborts only on anomalies
	// raised through Fatal (such as a truncated record) and on true I/O
	// failures, which surface as plain errors outside this package.
	ModeSalvage
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeLenient:
		return "lenient"
	case ModeSalvage:
		return "salvage"
	default:
		return "unknown"
	}
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "strict":
		return ModeStrict, nil
	case "lenient":
		return ModeLenient, nil
	case "salvage":
		return ModeSalvage, nil
	}
	return ModeLenient, fmt.Errorf("validate: unknown mode %q", s)
}

// Kind classifies an anomaly.
type Kind int

const (
	MissingRequiredField Kind = iota
	InvalidFieldFormat
	ImplausibleHeader
	BlockCountExceedsLimit
	EntryExceedsSizeLimit
	TruncatedRecord
	IndexMismatch
	UnknownKludge
	UnrecognisedControlLine
)

func (k Kind) String() string {
	switch k {
	case MissingRequiredField:
		return "MissingRequiredField"
	case InvalidFieldFormat:
		return "InvalidFieldFormat"
	case ImplausibleHeader:
		return "ImplausibleHeader"
	case BlockCountExceedsLimit:
		return "BlockCountExceedsLimit"
	case EntryExceedsSizeLimit:
		return "EntryExceedsSizeLimit"
	case TruncatedRecord:
		return "TruncatedRecord"
	case IndexMismatch:
		return "IndexMismatch"
	case UnknownKludge:
		return "UnknownKludge"
	case UnrecognisedControlLine:
		return "UnrecognisedControlLine"
	default:
		return "Unknown"
	}
}

// Locator identifies where in the packet an anomaly was observed.
// Unset fields (an empty File, a negative RecordOffset, a zero
// MessageNumber or Line) are omitted from the rendered form.
type Locator struct {
	File          string
	RecordOffset  int64 // record index within the file, -1 when unset
	MessageNumber int   // 0 when unset
	Line          int   // 1-based line number, 0 when unset
}

// Loc builds a Locator for a file with no position information.
func Loc(file string) Locator {
	return Locator{File: file, RecordOffset: -1}
}

func (l Locator) String() string {
	var b strings.Builder
	b.WriteString(l.File)
	if l.RecordOffset >= 0 {
		fmt.Fprintf(&b, " record %d", l.RecordOffset)
	}
	if l.MessageNumber > 0 {
		fmt.Fprintf(&b, " message %d", l.MessageNumber)
	}
	if l.Line > 0 {
		fmt.Fprintf(&b, " line %d", l.Line)
	}
	return b.String()
}

// Issue is one recorded anomaly.
type Issue struct {
	Kind    Kind
	Loc     Locator
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %s: %s", i.Kind, i.Loc, i.Message)
}

// AbortError is returned when the active mode turns a recorded anomaly
// into a parse abort.
type AbortError struct {
	Issue Issue
}

func (e *AbortError) Error() string {
	return "validate: aborted: " + e.Issue.String()
}

// Report is the accumulated outcome of a parse, ordered as recorded.
type Report struct {
	Warnings []Issue
	Errors   []Issue
}

// HasErrors reports whether any error-level anomaly was recorded.
func (r Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings reports whether any warning was recorded.
func (r Report) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Context accumulates anomalies for one packet parse.
type Context struct {
	mode     Mode
	warnings []Issue
	errors   []Issue
}

// NewContext returns a Context with the given abort policy.
func NewContext(mode Mode) *Context {
	return &Context{mode: mode}
}

// Mode returns the context's validation mode.
func (c *Context) Mode() Mode {
	return c.mode
}

// Warn records a warning. Warnings never abort.
func (c *Context) Warn(kind Kind, loc Locator, format string, args ...any) {
	c.warnings = append(c.warnings, Issue{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)})
}

// Error records an error-level anomaly. In strict mode it returns an
// *AbortError; otherwise it returns nil and parsing may continue.
func (c *Context) Error(kind Kind, loc Locator, format string, args ...any) error {
	issue := Issue{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)}
	c.errors = append(c.errors, issue)
	if c.mode == ModeStrict {
		return &AbortError{Issue: issue}
	}
	return nil
}

// Violation records an unrecoverable format violation. It aborts in
// strict and lenient modes; only salvage mode keeps going.
func (c *Context) Violation(kind Kind, loc Locator, format string, args ...any) error {
	issue := Issue{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)}
	c.errors = append(c.errors, issue)
	if c.mode == ModeSalvage {
		return nil
	}
	return &AbortError{Issue: issue}
}

// Fatal records an anomaly that aborts in every mode, such as a
// truncated record. The returned error is never nil.
func (c *Context) Fatal(kind Kind, loc Locator, format string, args ...any) error {
	issue := Issue{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)}
	c.errors = append(c.errors, issue)
	return &AbortError{Issue: issue}
}

// Report returns a copy of everything recorded so far.
func (c *Context) Report() Report {
	return Report{
		Warnings: append([]Issue(nil), c.warnings...),
		Errors:   append([]Issue(nil), c.errors...),
	}
}
