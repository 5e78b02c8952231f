// Package logging provides debug logging utilities for the qwk library.
//
// Parse-path tracing is gated behind DebugEnabled so walking a large
// packet stays silent by default. Suspect store records go through
// DebugRecord, which hex-dumps at most one 128-byte record.
package logging

import (
	"encoding/hex"
	"log"
	"os"
)

// recordDumpCap bounds a DebugRecord dump to one store record.
const recordDumpCap = 128

// DebugEnabled controls whether Debug() produces output.
// Set via -debug flag or DEBUG=1 environment variable.
var DebugEnabled bool

// EnableFromEnv turns debug logging on when DEBUG=1 is set. Tools call
// it before flag parsing so -debug can still override.
func EnableFromEnv() {
	if os.Getenv("DEBUG") == "1" {
		DebugEnabled = true
	}
}

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

// DebugRecord hex-dumps a store record only when DebugEnabled is true.
// The dump is capped at one record so a runaway body cannot flood the
// log.
func DebugRecord(label string, rec []byte) {
	if !DebugEnabled {
		return
	}
	if len(rec) > recordDumpCap {
		rec = rec[:recordDumpCap]
	}
	log.Printf("DEBUG: %s (%d bytes):\n%s", label, len(rec), hex.Dump(rec))
}
