package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestDebugDisabled(t *testing.T) {
	DebugEnabled = false
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	Debug("this should not appear")
	DebugRecord("nor this", []byte{0x01, 0x02})

	if buf.Len() > 0 {
		t.Errorf("Debug output when disabled: %s", buf.String())
	}
}

func TestDebugEnabled(t *testing.T) {
	DebugEnabled = true
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	Debug("test message %d", 42)

	if !bytes.Contains(buf.Bytes(), []byte("DEBUG: test message 42")) {
		t.Errorf("Expected debug output, got: %s", buf.String())
	}
	DebugEnabled = false
}

func TestDebugRecordCapped(t *testing.T) {
	DebugEnabled = true
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	rec := bytes.Repeat([]byte{0xE3}, 500)
	DebugRecord("oversized", rec)

	out := buf.String()
	if !strings.Contains(out, "(128 bytes)") {
		t.Errorf("dump not capped at one record: %s", out)
	}
	if !strings.Contains(out, "e3") {
		t.Errorf("dump missing hex bytes: %s", out)
	}
	DebugEnabled = false
}

func TestEnableFromEnv(t *testing.T) {
	DebugEnabled = false
	t.Setenv("DEBUG", "1")
	EnableFromEnv()
	if !DebugEnabled {
		t.Error("DEBUG=1 did not enable debug logging")
	}
	DebugEnabled = false

	t.Setenv("DEBUG", "0")
	EnableFromEnv()
	if DebugEnabled {
		t.Error("DEBUG=0 must not enable debug logging")
	}
}
