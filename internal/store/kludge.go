package store

import (
	"strings"

	"github.com/stlalpha/qwk/internal/validate"
)

// qwkeKeys are the QWKE long-header kludge keys, matched
// case-insensitively on the colon-separated key of the first body
// lines.
var qwkeKeys = map[string]bool{
	"to":      true,
	"from":    true,
	"subject": true,
}

// knownAtKludges are Synchronet @-kludge keys that do not warrant an
// UnknownKludge warning.
var knownAtKludges = map[string]bool{
	"@via":     true,
	"@msgid":   true,
	"@reply":   true,
	"@replyto": true,
	"@tz":      true,
}

// extractKludges scans body lines from the top for kludges and returns
// the collected kludges plus the remaining body.
//
// A line is a kludge iff it begins with '@' (a Synchronet kludge) or
// its colon-separated key is exactly To, From, or Subject. The scan
// stops at the first non-kludge line; a looser any-colon heuristic is
// deliberately not used because it strips real body text. A single
// blank separator line after the kludges is consumed, but only when at
// least one kludge was collected — a blank line before any kludge is
// ordinary formatting and stays.
func extractKludges(lines []string, ctx *validate.Context, loc validate.Locator) ([]Kludge, []string) {
	var kludges []Kludge
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "@") {
			k := atKludge(line)
			if !knownAtKludges[strings.ToLower(k.Key)] {
				ctx.Warn(validate.UnknownKludge, loc, "unknown kludge %q", k.Key)
			}
			kludges = append(kludges, k)
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || !qwkeKeys[strings.ToLower(key)] {
			break
		}
		kludges = append(kludges, Kludge{
			Key:     key,
			Value:   strings.TrimPrefix(value, " "),
			RawLine: line,
		})
	}

	if len(kludges) > 0 && i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return kludges, lines[i:]
}

// atKludge parses a Synchronet @-kludge line. The whole line is the
// raw kludge; when a colon is present the key is the part before it.
func atKludge(line string) Kludge {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return Kludge{Key: line, RawLine: line}
	}
	return Kludge{
		Key:     key,
		Value:   strings.TrimPrefix(value, " "),
		RawLine: line,
	}
}

// liftExtended populates the QWKE long headers from the kludge list.
// The first occurrence of each key wins.
func liftExtended(m *Message) {
	for _, k := range m.Kludges {
		switch strings.ToLower(k.Key) {
		case "to":
			if m.ExtendedTo == "" {
				m.ExtendedTo = k.Value
			}
		case "from":
			if m.ExtendedFrom == "" {
				m.ExtendedFrom = k.Value
			}
		case "subject":
			if m.ExtendedSubject == "" {
				m.ExtendedSubject = k.Value
			}
		}
	}
}
