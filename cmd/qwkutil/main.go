package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/ext"
	"github.com/stlalpha/qwk/internal/logging"
	"github.com/stlalpha/qwk/internal/packet"
	"github.com/stlalpha/qwk/internal/spool"
	"github.com/stlalpha/qwk/internal/store"
	"github.com/stlalpha/qwk/internal/validate"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "--version" || cmd == "-version" {
		fmt.Printf("qwkutil %s - QWK Packet Utility\n", version)
		return
	}
	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		printUsage()
		return
	}

	switch cmd {
	case "stats":
		cmdStats(os.Args[2:])
	case "messages":
		cmdMessages(os.Args[2:])
	case "verify":
		cmdVerify(os.Args[2:])
	case "index":
		cmdIndex(os.Args[2:])
	case "rep":
		cmdRep(os.Args[2:])
	case "watch":
		cmdWatch(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `qwkutil %s - QWK Packet Utility

Usage: qwkutil <command> [options] <packet...>

Commands:
  stats     Display packet statistics
  messages  Dump message headers (and bodies with -full)
  verify    Parse everything and report warnings/errors
  index     Dump per-conference index files
  rep       Repackage messages into a <BBSID>.REP reply archive
  watch     Watch an inbound directory and verify arriving packets

Global Options:
  --mode MODE     Validation mode: strict, lenient, salvage (default lenient)
  --debug         Enable debug logging

Examples:
  qwkutil stats MYBBS.QWK
  qwkutil messages --conf 7 MYBBS.QWK
  qwkutil verify --mode strict MYBBS.QWK
  qwkutil index MYBBS.QWK
  qwkutil rep --conf 7 --out replies/MYBBS.REP MYBBS.QWK
  qwkutil watch --dir inbound
`, version)
}

func addGlobalFlags(fs *flag.FlagSet) *string {
	mode := fs.String("mode", "lenient", "Validation mode")
	logging.EnableFromEnv()
	fs.BoolVar(&logging.DebugEnabled, "debug", logging.DebugEnabled, "Enable debug logging")
	return mode
}

func openPacket(path, modeStr string) (*packet.Packet, error) {
	mode, err := validate.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	opts := packet.DefaultOptions()
	opts.Mode = mode
	// Display tools should never die on an odd glyph.
	opts.Fallback = cp437.FallbackReplace
	return packet.Open(path, opts)
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	mode := addGlobalFlags(fs)
	fs.Parse(args)

	for _, path := range fs.Args() {
		p, err := openPacket(path, *mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
			continue
		}

		m, _ := p.Control()
		msgs, merr := p.Messages()

		fmt.Printf("=== %s ===\n", filepath.Base(path))
		fmt.Printf("  BBS:         %s (%s)\n", m.BBSName, m.BBSID)
		fmt.Printf("  City:        %s\n", m.City)
		fmt.Printf("  Sysop:       %s\n", m.Sysop)
		if m.HasCreatedAt {
			fmt.Printf("  Created:     %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("  User:        %s\n", m.UserName)
		fmt.Printf("  Conferences: %d\n", len(m.Conferences))
		if merr != nil {
			fmt.Printf("  Messages:    walk aborted: %v\n", merr)
		} else {
			fmt.Printf("  Messages:    %d (control says %d)\n", len(msgs), m.TotalCount)
		}
		if d, _ := p.DoorID(); d != nil {
			fmt.Printf("  Door:        %s %s [%s]\n", d.Door, d.Version, d.Capabilities)
		}
		report := p.Report()
		fmt.Printf("  Warnings:    %d\n", len(report.Warnings))
		fmt.Printf("  Errors:      %d\n", len(report.Errors))
		fmt.Println()
		p.Close()
	}
}

func cmdMessages(args []string) {
	fs := flag.NewFlagSet("messages", flag.ExitOnError)
	mode := addGlobalFlags(fs)
	conf := fs.Int("conf", -1, "Only this conference number")
	full := fs.Bool("full", false, "Dump bodies, not just headers")
	fs.Parse(args)

	for _, path := range fs.Args() {
		p, err := openPacket(path, *mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
			continue
		}

		msgs, err := p.Messages()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error walking %s: %v\n", path, err)
			p.Close()
			continue
		}
		for _, msg := range msgs {
			h := msg.Header
			if *conf >= 0 && int(h.Conference) != *conf {
				continue
			}
			date := "--------"
			if h.HasDate {
				date = h.Date.Format("01-02-06 15:04")
			}
			fmt.Printf("#%-7d conf %-5d %s  %-25s -> %-25s %s\n",
				h.Number, h.Conference, date, msg.DisplayFrom(), msg.DisplayTo(), msg.DisplaySubject())
			if *full {
				for _, line := range msg.Body {
					fmt.Printf("    %s\n", line)
				}
				fmt.Println()
			}
		}
		p.Close()
	}
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	mode := addGlobalFlags(fs)
	quiet := fs.Bool("q", false, "Only set the exit code")
	fs.Parse(args)

	hadErrors := false
	for _, path := range fs.Args() {
		p, err := openPacket(path, *mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
			hadErrors = true
			continue
		}

		// Touch every component so the report is complete.
		if _, err := p.Messages(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: store walk aborted: %v\n", path, err)
		}
		p.DoorID()
		p.ToReader()
		p.ToDoor()
		if confs, err := p.Conferences(); err == nil {
			for _, c := range confs {
				p.Index(c.Number)
			}
		}

		report := p.Report()
		if !*quiet {
			for _, w := range report.Warnings {
				fmt.Printf("WARN:  %s\n", w)
			}
			for _, e := range report.Errors {
				fmt.Printf("ERROR: %s\n", e)
			}
			fmt.Printf("%s: %d warning(s), %d error(s)\n",
				filepath.Base(path), len(report.Warnings), len(report.Errors))
		}
		if report.HasErrors() {
			hadErrors = true
		}
		p.Close()
	}
	if hadErrors {
		os.Exit(1)
	}
}

func cmdIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	mode := addGlobalFlags(fs)
	fs.Parse(args)

	for _, path := range fs.Args() {
		p, err := openPacket(path, *mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", path, err)
			continue
		}
		confs, err := p.Conferences()
		if err != nil {
			p.Close()
			continue
		}
		for _, c := range confs {
			idx, err := p.Index(c.Number)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading index for conf %d: %v\n", c.Number, err)
				continue
			}
			if idx == nil {
				continue
			}
			fmt.Printf("=== conf %d (%s): %d entries, %d-byte records ===\n",
				c.Number, c.Name, len(idx.Entries), idx.RecordSize)
			for i, e := range idx.Entries {
				fmt.Printf("  %-5d record %-8d byte %d\n", i, e.RecordOffset, e.ByteOffset())
			}
		}
		p.Close()
	}
}

// cmdRep repackages messages from a QWK packet into a reply archive.
func cmdRep(args []string) {
	fs := flag.NewFlagSet("rep", flag.ExitOnError)
	mode := addGlobalFlags(fs)
	out := fs.String("out", "", "Output path (default <BBSID>.REP)")
	bbsid := fs.String("bbsid", "", "Override the BBS id from CONTROL.DAT")
	conf := fs.Int("conf", -1, "Only include this conference number")
	toDoor := fs.String("to-door", "", "TODOOR.EXT command file to include")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: rep takes exactly one packet\n")
		os.Exit(1)
	}

	p, err := openPacket(fs.Arg(0), *mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}
	defer p.Close()

	manifest, err := p.Control()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	id := *bbsid
	if id == "" {
		id = manifest.BBSID
	}
	if id == "" {
		fmt.Fprintf(os.Stderr, "Error: packet has no BBS id, use --bbsid\n")
		os.Exit(1)
	}

	var msgs []*store.Message
	if *conf >= 0 {
		msgs, err = p.MessagesInConference(uint16(*conf))
	} else {
		msgs, err = p.Messages()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error walking %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}
	if len(msgs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no messages to repackage\n")
		os.Exit(1)
	}

	var td *ext.File
	if *toDoor != "" {
		data, err := os.ReadFile(*toDoor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *toDoor, err)
			os.Exit(1)
		}
		td = ext.Parse(ext.ToDoorFile, data)
	}

	repPath := *out
	if repPath == "" {
		repPath = strings.ToUpper(id) + ".REP"
	}
	err = packet.WriteREP(repPath, packet.Reply{
		BBSID:    id,
		Messages: msgs,
		ToDoor:   td,
		Fallback: cp437.FallbackReplace,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", repPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s: %d message(s)\n", repPath, len(msgs))
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	mode := addGlobalFlags(fs)
	dir := fs.String("dir", "inbound", "Directory to watch")
	schedule := fs.String("sweep", "", "Cron sweep schedule (with seconds)")
	fs.Parse(args)

	handler := func(job spool.Job) error {
		p, err := openPacket(job.Path, *mode)
		if err != nil {
			return err
		}
		defer p.Close()
		msgs, err := p.Messages()
		if err != nil {
			return err
		}
		report := p.Report()
		fmt.Printf("[%s] %s: %d messages, %d warning(s), %d error(s)\n",
			job.ID[:8], filepath.Base(job.Path), len(msgs),
			len(report.Warnings), len(report.Errors))
		return nil
	}

	w, err := spool.New(*dir, handler, *schedule)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	w.Stop()
}
