package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// zipMagic is the 4-byte magic number for ZIP archives (PK\x03\x04).
var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// IsZip reports whether the file at p begins with the ZIP magic bytes.
func IsZip(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, err := f.Read(magic)
	if err != nil || n < 4 {
		return false, nil
	}
	return bytes.Equal(magic, zipMagic), nil
}

// ZipProvider serves entries from a ZIP archive, the historical QWK
// container.
type ZipProvider struct {
	rc     *zip.ReadCloser
	limits Limits
	byName map[string]*zip.File
	names  []string
	closed bool
}

// OpenZip opens a ZIP packet at p.
func OpenZip(p string, limits Limits) (*ZipProvider, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", p, err)
	}
	zp := &ZipProvider{
		rc:     rc,
		limits: limits,
		byName: make(map[string]*zip.File, len(rc.File)),
	}
	for _, zf := range rc.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		// Some doors pack with directory components; only the base
		// name identifies the entry.
		name := path.Base(zf.Name)
		key := strings.ToUpper(name)
		if _, dup := zp.byName[key]; dup {
			continue
		}
		zp.byName[key] = zf
		zp.names = append(zp.names, name)
	}
	return zp, nil
}

// ListFiles implements Provider.
func (zp *ZipProvider) ListFiles() ([]string, error) {
	return append([]string(nil), zp.names...), nil
}

// Exists implements Provider.
func (zp *ZipProvider) Exists(name string) bool {
	_, ok := zp.byName[strings.ToUpper(name)]
	return ok
}

// Size implements Provider.
func (zp *ZipProvider) Size(name string) (int64, error) {
	zf, ok := zp.byName[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return int64(zf.UncompressedSize64), nil
}

// Open implements Provider. The uncompressed size limit is enforced
// before decompression begins.
func (zp *ZipProvider) Open(name string) (io.ReadCloser, error) {
	zf, ok := zp.byName[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	limit := zp.limits.maxEntryBytes()
	if int64(zf.UncompressedSize64) > limit {
		return nil, &EntryTooLargeError{
			Name:  name,
			Size:  int64(zf.UncompressedSize64),
			Limit: limit,
		}
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: open entry %s: %w", name, err)
	}
	return rc, nil
}

// Close implements Provider.
func (zp *ZipProvider) Close() error {
	if zp.closed {
		return nil
	}
	zp.closed = true
	return zp.rc.Close()
}
