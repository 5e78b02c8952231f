// qwkread is a terminal offline mail reader: point it at a QWK packet
// and browse conferences and messages.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/logging"
	"github.com/stlalpha/qwk/internal/packet"
	"github.com/stlalpha/qwk/internal/validate"
)

func main() {
	mode := flag.String("mode", "lenient", "Validation mode: strict, lenient, salvage")
	logging.EnableFromEnv()
	flag.BoolVar(&logging.DebugEnabled, "debug", logging.DebugEnabled, "Enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: qwkread [options] <packet.qwk>\n")
		os.Exit(1)
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintf(os.Stderr, "qwkread needs a terminal; use qwkutil for scripted output\n")
		os.Exit(1)
	}

	vmode, err := validate.ParseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts := packet.DefaultOptions()
	opts.Mode = vmode
	opts.Fallback = cp437.FallbackReplace

	p, err := packet.Open(flag.Arg(0), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening packet: %v\n", err)
		os.Exit(1)
	}
	defer p.Close()

	m, err := newModel(p, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
