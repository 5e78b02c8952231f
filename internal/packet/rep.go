package packet

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/stlalpha/qwk/internal/cp437"
	"github.com/stlalpha/qwk/internal/ext"
	"github.com/stlalpha/qwk/internal/store"
)

// Reply is the material for one REP packet: the BBS id from the
// control manifest, the reply messages, and an optional TODOOR.EXT
// command file.
type Reply struct {
	BBSID    string
	Messages []*store.Message
	ToDoor   *ext.File
	Fallback cp437.Fallback
}

// WriteREP assembles a <BBSID>.REP archive at repPath containing a
// <BBSID>.MSG message store in the usual record format. The store is
// staged in a unique work directory and the archive is renamed into
// place on success, so a partial REP is never left behind.
func WriteREP(repPath string, r Reply) error {
	if r.BBSID == "" {
		return fmt.Errorf("packet: REP needs a BBS id")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("packet: REP needs at least one message")
	}

	workDir := filepath.Join(os.TempDir(), "qwk-rep-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("packet: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	msgName := strings.ToUpper(r.BBSID) + ".MSG"
	msgPath := filepath.Join(workDir, msgName)
	if err := writeReplyStore(msgPath, r); err != nil {
		return err
	}

	tmpPath := repPath + ".tmp"
	if err := writeRepArchive(tmpPath, workDir, msgName, r); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, repPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("packet: rename REP: %w", err)
	}
	return nil
}

// writeReplyStore emits the reply message store. In a REP the leading
// record carries the BBS id instead of a copyright string.
func writeReplyStore(path string, r Reply) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("packet: create reply store: %w", err)
	}

	sw, err := store.NewWriter(f, strings.ToUpper(r.BBSID), r.Fallback)
	if err != nil {
		f.Close()
		return err
	}
	for i, m := range r.Messages {
		if _, err := sw.WriteMessage(m); err != nil {
			f.Close()
			return fmt.Errorf("packet: reply message %d: %w", i+1, err)
		}
	}
	return f.Close()
}

func writeRepArchive(zipPath, workDir, msgName string, r Reply) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("packet: create REP: %w", err)
	}
	zw := zip.NewWriter(f)

	if err := addZipEntry(zw, msgName, filepath.Join(workDir, msgName)); err != nil {
		zw.Close()
		f.Close()
		return err
	}
	if r.ToDoor != nil {
		data, err := ext.Write(r.ToDoor, r.Fallback)
		if err != nil {
			zw.Close()
			f.Close()
			return err
		}
		w, err := zw.Create(ext.ToDoorFile)
		if err == nil {
			_, err = w.Write(data)
		}
		if err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("packet: add %s: %w", ext.ToDoorFile, err)
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("packet: close REP writer: %w", err)
	}
	return f.Close()
}

func addZipEntry(zw *zip.Writer, name, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("packet: read %s: %w", name, err)
	}
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("packet: add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("packet: add %s: %w", name, err)
	}
	return nil
}
