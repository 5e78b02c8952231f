// Package archive abstracts the packet container as a named byte-stream
// producer. The core only ever asks a provider to list entries, test
// for one, and open one for reading; ZIP is handled natively by the Go
// standard library and an unpacked directory works the same way for
// tooling and tests.
//
// Entry names inside packets are DOS-style and matched
// case-insensitively.
package archive

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxEntrySizeMB caps an entry's uncompressed size.
const DefaultMaxEntrySizeMB = 100

// ErrNotFound reports a missing archive entry.
var ErrNotFound = errors.New("archive: entry not found")

// EntryTooLargeError reports an entry whose uncompressed size exceeds
// the configured limit. The caller records it as an
// EntryExceedsSizeLimit anomaly.
type EntryTooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *EntryTooLargeError) Error() string {
	return fmt.Sprintf("archive: entry %s is %d bytes, limit %d", e.Name, e.Size, e.Limit)
}

// Limits bounds what a provider will hand out.
type Limits struct {
	// MaxEntrySizeMB caps an entry's uncompressed size. Zero means
	// DefaultMaxEntrySizeMB.
	MaxEntrySizeMB int
}

func (l Limits) maxEntryBytes() int64 {
	mb := l.MaxEntrySizeMB
	if mb <= 0 {
		mb = DefaultMaxEntrySizeMB
	}
	return int64(mb) * 1024 * 1024
}

// Provider produces named byte streams from a packet container.
// Opened streams may report short reads; callers that need exact
// counts wrap them in a recordio.Reader.
type Provider interface {
	// ListFiles returns the entry names in container order.
	ListFiles() ([]string, error)
	// Exists reports whether an entry with the given name is present.
	// Matching is case-insensitive.
	Exists(name string) bool
	// Size returns an entry's uncompressed size.
	Size(name string) (int64, error)
	// Open returns a reader for the entry. It fails with an
	// *EntryTooLargeError when the uncompressed size would exceed the
	// configured limit.
	Open(name string) (io.ReadCloser, error)
	// Close releases the container.
	Close() error
}

// ReadFile is a convenience that opens an entry and reads it fully.
func ReadFile(p Provider, name string) ([]byte, error) {
	rc, err := p.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return data, nil
}
