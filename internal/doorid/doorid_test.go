package doorid

import (
	"strings"
	"testing"

	"github.com/stlalpha/qwk/internal/validate"
)

func sampleDoorID() []byte {
	lines := []string{
		"DOOR = Qmail",
		"VERSION = 4.0",
		"SYSTEM = PCBoard 14.5",
		"CONTROLNAME = QMAIL",
		"CONTROLTYPE = ADD",
		"CONTROLTYPE = DROP",
		"CONTROLTYPE = REQUEST",
		"MIXEDCASE = YES",
		"RECEIPT",
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestParseDoorID(t *testing.T) {
	ctx := validate.NewContext(validate.ModeLenient)
	d, err := Parse(sampleDoorID(), ctx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Door != "Qmail" || d.Version != "4.0" {
		t.Errorf("door/version: %q %q", d.Door, d.Version)
	}
	if d.System != "PCBoard 14.5" || d.ControlName != "QMAIL" {
		t.Errorf("system/controlname: %q %q", d.System, d.ControlName)
	}
	want := CapAdd | CapDrop | CapRequest | CapMixedCase | CapReceipt
	if d.Capabilities != want {
		t.Errorf("capabilities: got %v, want %v", d.Capabilities, want)
	}
	if d.Capabilities.Has(CapReset) || d.Capabilities.Has(CapFidoTag) {
		t.Error("unexpected capabilities set")
	}
	if report := ctx.Report(); report.HasErrors() {
		t.Errorf("unexpected errors: %v", report.Errors)
	}
}

func TestParseDoorIDMissingRequired(t *testing.T) {
	ctx := validate.NewContext(validate.ModeLenient)
	_, err := Parse([]byte("SYSTEM = Something\r\n"), ctx)
	if err != nil {
		t.Fatalf("lenient Parse: %v", err)
	}
	report := ctx.Report()
	if len(report.Errors) != 2 {
		t.Fatalf("got %d errors, want 2 (DOOR and VERSION)", len(report.Errors))
	}
	for _, e := range report.Errors {
		if e.Kind != validate.MissingRequiredField {
			t.Errorf("error kind: %v", e.Kind)
		}
	}

	ctx = validate.NewContext(validate.ModeStrict)
	if _, err := Parse([]byte("SYSTEM = Something\r\n"), ctx); err == nil {
		t.Error("strict mode must abort on missing DOOR")
	}
}

func TestParseDoorIDTightEquals(t *testing.T) {
	data := []byte("DOOR=Qmail\r\nVERSION=4.0\r\n")

	// Lenient accepts '=' without spaces but records the deviation.
	ctx := validate.NewContext(validate.ModeLenient)
	d, err := Parse(data, ctx)
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if d.Door != "Qmail" || d.Version != "4.0" {
		t.Errorf("fields: %q %q", d.Door, d.Version)
	}
	if !ctx.Report().HasErrors() {
		t.Error("tight '=' should be recorded")
	}

	// Strict aborts.
	ctx = validate.NewContext(validate.ModeStrict)
	if _, err := Parse(data, ctx); err == nil {
		t.Error("strict mode must reject '=' without spaces")
	}
}

func TestParseDoorIDUnknownKeyWarns(t *testing.T) {
	data := []byte("DOOR = X\r\nVERSION = 1\r\nFROBNICATE = MAYBE\r\n")
	ctx := validate.NewContext(validate.ModeLenient)
	if _, err := Parse(data, ctx); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	found := false
	for _, w := range ctx.Report().Warnings {
		if w.Kind == validate.UnrecognisedControlLine {
			found = true
		}
	}
	if !found {
		t.Error("unknown key did not warn")
	}
}

func TestCapabilityString(t *testing.T) {
	c := CapAdd | CapReceipt
	s := c.String()
	if !strings.Contains(s, "ADD") || !strings.Contains(s, "RECEIPT") {
		t.Errorf("got %q", s)
	}
	if Capability(0).String() != "none" {
		t.Errorf("zero: %q", Capability(0).String())
	}
}
