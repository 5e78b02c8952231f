package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirProvider serves entries from an already-unpacked packet
// directory. Subdirectories are ignored.
type DirProvider struct {
	dir    string
	limits Limits
	byName map[string]string
	names  []string
}

// OpenDir opens the directory at p as a packet container.
func OpenDir(p string, limits Limits) (*DirProvider, error) {
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("archive: open dir %s: %w", p, err)
	}
	dp := &DirProvider{
		dir:    p,
		limits: limits,
		byName: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := strings.ToUpper(e.Name())
		if _, dup := dp.byName[key]; dup {
			continue
		}
		dp.byName[key] = e.Name()
		dp.names = append(dp.names, e.Name())
	}
	return dp, nil
}

// ListFiles implements Provider.
func (dp *DirProvider) ListFiles() ([]string, error) {
	return append([]string(nil), dp.names...), nil
}

// Exists implements Provider.
func (dp *DirProvider) Exists(name string) bool {
	_, ok := dp.byName[strings.ToUpper(name)]
	return ok
}

// Size implements Provider.
func (dp *DirProvider) Size(name string) (int64, error) {
	real, ok := dp.byName[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	info, err := os.Stat(filepath.Join(dp.dir, real))
	if err != nil {
		return 0, fmt.Errorf("archive: stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Open implements Provider.
func (dp *DirProvider) Open(name string) (io.ReadCloser, error) {
	real, ok := dp.byName[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	full := filepath.Join(dp.dir, real)
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("archive: stat %s: %w", name, err)
	}
	limit := dp.limits.maxEntryBytes()
	if info.Size() > limit {
		return nil, &EntryTooLargeError{Name: name, Size: info.Size(), Limit: limit}
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("archive: open entry %s: %w", name, err)
	}
	return f, nil
}

// Close implements Provider. Directory providers hold no handles
// between reads.
func (dp *DirProvider) Close() error {
	return nil
}
