// Package packet is the facade over an opened QWK packet: it owns the
// archive handle, lazily materialises the parsed components, and
// routes configuration to the layers below.
package packet

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/stlalpha/qwk/internal/archive"
	"github.com/stlalpha/qwk/internal/control"
	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/doorid"
	"github.com/stlalpha/qwk/internal/ext"
	"github.com/stlalpha/qwk/internal/logging"
	"github.com/stlalpha/qwk/internal/ndx"
	"github.com/stlalpha/qwk/internal/store"
	"github.com/stlalpha/qwk/internal/validate"
)

// Canonical optional file names.
const (
	FileWelcome = "WELCOME"
	FileNews    = "NEWS"
	FileGoodbye = "GOODBYE"
)

// ErrClosed reports use of a packet after Close.
var ErrClosed = errors.New("packet: closed")

// Options configures an open. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// Mode governs the abort policy for parse anomalies.
	Mode validate.Mode
	// MaxMessageSizeMB caps one message's body; one block is 128 bytes.
	MaxMessageSizeMB int
	// MaxEntrySizeMB caps an archive entry's uncompressed size.
	MaxEntrySizeMB int
	// Fallback selects CP437 encode/decode behaviour for unmappable runes.
	Fallback cp437.Fallback
}

// DefaultOptions returns the documented defaults: lenient validation,
// 16 MB messages, 100 MB entries, strict codec.
func DefaultOptions() Options {
	return Options{
		Mode:             validate.ModeLenient,
		MaxMessageSizeMB: store.DefaultMaxMessageSizeMB,
		MaxEntrySizeMB:   archive.DefaultMaxEntrySizeMB,
		Fallback:         cp437.FallbackStrict,
	}
}

func (o Options) maxBlocks() int {
	mb := o.MaxMessageSizeMB
	if mb <= 0 {
		mb = store.DefaultMaxMessageSizeMB
	}
	return mb * store.BlocksPerMB
}

// Packet is an opened QWK packet. A Packet is not safe for concurrent
// use; distinct packets are independent.
type Packet struct {
	provider archive.Provider
	opts     Options
	ctx      *validate.Context

	manifest *control.Manifest
	messages []*store.Message
	walked   bool
	door     *doorid.DoorID
	doorRead bool
	indexes  map[uint16]*ndx.Index
	extFiles map[string]*ext.File

	closed bool
}

// Open opens the packet at path, which may be a ZIP archive or an
// already-unpacked directory.
func Open(path string, opts Options) (*Packet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("packet: %w", err)
	}

	limits := archive.Limits{MaxEntrySizeMB: opts.MaxEntrySizeMB}
	var provider archive.Provider
	if info.IsDir() {
		provider, err = archive.OpenDir(path, limits)
	} else {
		var zipOK bool
		zipOK, err = archive.IsZip(path)
		if err == nil && !zipOK {
			err = fmt.Errorf("packet: %s is not a ZIP archive", path)
		}
		if err == nil {
			provider, err = archive.OpenZip(path, limits)
		}
	}
	if err != nil {
		return nil, err
	}
	return OpenProvider(provider, opts)
}

// OpenProvider wraps an existing archive provider. The packet takes
// ownership of the provider and closes it on Close.
func OpenProvider(provider archive.Provider, opts Options) (*Packet, error) {
	p := &Packet{
		provider: provider,
		opts:     opts,
		ctx:      validate.NewContext(opts.Mode),
		indexes:  make(map[uint16]*ndx.Index),
		extFiles: make(map[string]*ext.File),
	}
	// The control manifest is the one component every packet must
	// have; parse it eagerly so Open fails fast on garbage.
	if _, err := p.Control(); err != nil {
		provider.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the archive handle. Closing twice is a no-op.
func (p *Packet) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.messages = nil
	return p.provider.Close()
}

// Report returns the validation report accumulated so far. It is
// available regardless of whether any accessor returned an error.
func (p *Packet) Report() validate.Report {
	return p.ctx.Report()
}

// Control returns the parsed CONTROL.DAT manifest.
func (p *Packet) Control() (*control.Manifest, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.manifest != nil {
		return p.manifest, nil
	}
	data, err := p.readEntry(control.FileName)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, p.ctx.Fatal(validate.MissingRequiredField,
			validate.Loc(control.FileName), "packet has no control manifest")
	}
	m, err := control.Parse(data, p.ctx)
	if err != nil {
		return nil, err
	}
	p.manifest = m
	return m, nil
}

// Conferences returns the conference list from the control manifest.
func (p *Packet) Conferences() ([]control.Conference, error) {
	m, err := p.Control()
	if err != nil {
		return nil, err
	}
	return append([]control.Conference(nil), m.Conferences...), nil
}

// Messages walks the message store on first call and returns the
// materialised message list. The store is single-pass, so the facade
// caches the full traversal; enumeration order is on-disk order.
func (p *Packet) Messages() ([]*store.Message, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.walked {
		return p.messages, nil
	}

	rc, err := p.provider.Open(store.FileName)
	if err != nil {
		if aerr := p.entryOpenAnomaly(store.FileName, err); aerr != nil {
			return nil, aerr
		}
		p.walked = true
		return nil, nil
	}
	defer rc.Close()

	w := store.NewWalker(rc, p.ctx, store.Limits{MaxBlocksPerMessage: p.opts.maxBlocks()})
	var msgs []*store.Message
	for w.Next() {
		msgs = append(msgs, w.Message())
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	logging.Debug("packet: store walk yielded %d messages (%d consumed)", len(msgs), w.Count())
	p.messages = msgs
	p.walked = true
	return msgs, nil
}

// Message returns the message at index i of the materialised list.
func (p *Packet) Message(i int) (*store.Message, error) {
	msgs, err := p.Messages()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(msgs) {
		return nil, fmt.Errorf("packet: message index %d of %d", i, len(msgs))
	}
	return msgs[i], nil
}

// MessagesInConference filters the materialised list by conference
// number, preserving store order.
func (p *Packet) MessagesInConference(conf uint16) ([]*store.Message, error) {
	msgs, err := p.Messages()
	if err != nil {
		return nil, err
	}
	var out []*store.Message
	for _, m := range msgs {
		if m.Header.Conference == conf {
			out = append(out, m)
		}
	}
	return out, nil
}

// Index returns the parsed per-conference index, or nil when the
// packet carries none for that conference (a warning, not an error).
func (p *Packet) Index(conf uint16) (*ndx.Index, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if idx, ok := p.indexes[conf]; ok {
		return idx, nil
	}
	name := ndx.FileNameFor(conf)
	data, err := p.readEntry(name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		p.ctx.Warn(validate.MissingRequiredField, validate.Loc(name), "index file missing")
		p.indexes[conf] = nil
		return nil, nil
	}
	idx, err := ndx.Parse(name, data, p.ctx)
	if err != nil {
		return nil, err
	}
	if storeSize, serr := p.provider.Size(store.FileName); serr == nil {
		if err := idx.CrossCheck(storeSize, p.ctx); err != nil {
			return nil, err
		}
	}
	p.indexes[conf] = idx
	return idx, nil
}

// DoorID returns the parsed DOOR.ID, or nil when the packet has none.
func (p *Packet) DoorID() (*doorid.DoorID, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.doorRead {
		return p.door, nil
	}
	data, err := p.readEntry(doorid.FileName)
	if err != nil {
		return nil, err
	}
	p.doorRead = true
	if data == nil {
		p.ctx.Warn(validate.MissingRequiredField, validate.Loc(doorid.FileName), "file missing")
		return nil, nil
	}
	d, err := doorid.Parse(data, p.ctx)
	if err != nil {
		return nil, err
	}
	p.door = d
	return d, nil
}

// ToReader returns the parsed TOREADER.EXT, or nil when absent.
func (p *Packet) ToReader() (*ext.File, error) {
	return p.extFile(ext.ToReaderFile)
}

// ToDoor returns the parsed TODOOR.EXT, or nil when absent.
func (p *Packet) ToDoor() (*ext.File, error) {
	return p.extFile(ext.ToDoorFile)
}

func (p *Packet) extFile(name string) (*ext.File, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if f, ok := p.extFiles[name]; ok {
		return f, nil
	}
	data, err := p.readEntry(name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		p.extFiles[name] = nil
		return nil, nil
	}
	f := ext.Parse(name, data)
	p.extFiles[name] = f
	return f, nil
}

// OptionalFile returns the raw bytes of an optional display file by
// canonical name (WELCOME, NEWS, GOODBYE) or any literal entry name.
// A missing file yields a warning and nil bytes, not an error.
func (p *Packet) OptionalFile(name string) ([]byte, error) {
	if p.closed {
		return nil, ErrClosed
	}
	entry := name
	if m, err := p.Control(); err == nil {
		switch strings.ToUpper(name) {
		case FileWelcome:
			if m.Welcome != "" {
				entry = m.Welcome
			}
		case FileNews:
			if m.News != "" {
				entry = m.News
			}
		case FileGoodbye:
			if m.Goodbye != "" {
				entry = m.Goodbye
			}
		}
	}
	data, err := p.readEntry(entry)
	if err != nil {
		return nil, err
	}
	if data == nil {
		p.ctx.Warn(validate.MissingRequiredField, validate.Loc(entry), "optional file missing")
		return nil, nil
	}
	return data, nil
}

// readEntry reads a whole entry, translating absence into nil bytes
// and size-limit violations into recorded anomalies.
func (p *Packet) readEntry(name string) ([]byte, error) {
	if !p.provider.Exists(name) {
		return nil, nil
	}
	data, err := archive.ReadFile(p.provider, name)
	if err != nil {
		var tooLarge *archive.EntryTooLargeError
		if errors.As(err, &tooLarge) {
			if aerr := p.ctx.Error(validate.EntryExceedsSizeLimit, validate.Loc(name),
				"%d bytes exceeds limit %d", tooLarge.Size, tooLarge.Limit); aerr != nil {
				return nil, aerr
			}
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// entryOpenAnomaly classifies a store-open failure: a size-limit hit
// is a recorded anomaly, anything else is an I/O error.
func (p *Packet) entryOpenAnomaly(name string, err error) error {
	var tooLarge *archive.EntryTooLargeError
	if errors.As(err, &tooLarge) {
		return p.ctx.Error(validate.EntryExceedsSizeLimit, validate.Loc(name),
			"%d bytes exceeds limit %d", tooLarge.Size, tooLarge.Limit)
	}
	if errors.Is(err, archive.ErrNotFound) {
		return p.ctx.Error(validate.MissingRequiredField, validate.Loc(name), "message store missing")
	}
	return err
}
