// Package ext parses the QWKE reader<->door command files TOREADER.EXT
// and TODOOR.EXT: plain text, one command per non-blank line, each
// split at its first whitespace into a command type and parameters.
package ext

import (
	"strings"

	"github.com/stlalpha/qwk/internal/cp437"
)

// Canonical file names inside QWK and REP packets.
const (
	ToReaderFile = "TOREADER.EXT"
	ToDoorFile   = "TODOOR.EXT"
)

// Command is one line of a command file. RawLine preserves the source
// line verbatim.
type Command struct {
	Type       string
	Parameters string
	RawLine    string
}

// File is a parsed command file.
type File struct {
	Name     string
	Commands []Command
	RawLines []string
}

// Parse decodes a command file. Blank lines are skipped; everything
// else is carried verbatim, since command vocabularies differ per door.
func Parse(name string, data []byte) *File {
	f := &File{Name: name}
	text := strings.ReplaceAll(cp437.Decode(data), "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f.RawLines = append(f.RawLines, line)
		f.Commands = append(f.Commands, parseCommand(line))
	}
	return f
}

func parseCommand(line string) Command {
	trimmed := strings.TrimSpace(line)
	cmd, params, ok := cutAnySpace(trimmed)
	if !ok {
		return Command{Type: trimmed, RawLine: line}
	}
	return Command{
		Type:       cmd,
		Parameters: strings.TrimSpace(params),
		RawLine:    line,
	}
}

// cutAnySpace splits s at its first whitespace run.
func cutAnySpace(s string) (string, string, bool) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// Write renders commands back to file bytes with CRLF endings,
// preferring retained raw lines.
func Write(f *File, fb cp437.Fallback) ([]byte, error) {
	var b strings.Builder
	for _, c := range f.Commands {
		line := c.RawLine
		if line == "" {
			line = c.Type
			if c.Parameters != "" {
				line += " " + c.Parameters
			}
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return cp437.Encode(b.String(), fb)
}
