package spool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitialSweepPicksUpWaitingPacket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MYBBS.QWK")
	if err := os.WriteFile(path, []byte("PK\x03\x04fake"), 0644); err != nil {
		t.Fatal(err)
	}

	got := make(chan Job, 1)
	w, err := New(dir, func(j Job) error {
		got <- j
		return nil
	}, "@yearly") // keep the cron sweep out of the way
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	select {
	case j := <-got:
		if j.Path != path {
			t.Errorf("job path: %q", j.Path)
		}
		if j.ID == "" {
			t.Error("job needs an ID")
		}
	case <-time.After(15 * time.Second):
		t.Fatal("waiting packet never dispatched")
	}
}

func TestEventDispatch(t *testing.T) {
	dir := t.TempDir()
	got := make(chan Job, 1)
	w, err := New(dir, func(j Job) error {
		got <- j
		return nil
	}, "@yearly")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "LATER.QWK")
	if err := os.WriteFile(path, []byte("arrived"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case j := <-got:
		if filepath.Base(j.Path) != "LATER.QWK" {
			t.Errorf("job path: %q", j.Path)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("arriving packet never dispatched")
	}
}

func TestIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	got := make(chan Job, 4)
	w, err := New(dir, func(j Job) error {
		got <- j
		return nil
	}, "@yearly")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	os.WriteFile(filepath.Join(dir, "README.TXT"), []byte("no"), 0644)
	os.WriteFile(filepath.Join(dir, "MAIL.REP"), []byte("yes"), 0644)

	select {
	case j := <-got:
		if filepath.Base(j.Path) != "MAIL.REP" {
			t.Errorf("dispatched %q", j.Path)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("REP packet never dispatched")
	}
	w.Stop()

	select {
	case j := <-got:
		t.Errorf("unexpected extra job: %q", j.Path)
	default:
	}
}

func TestIsPacketName(t *testing.T) {
	cases := map[string]bool{
		"MYBBS.QWK":  true,
		"mybbs.qwk":  true,
		"reply.rep":  true,
		"notes.txt":  false,
		"MYBBS.QWK1": false,
	}
	for name, want := range cases {
		if got := isPacketName(name); got != want {
			t.Errorf("isPacketName(%q): got %v, want %v", name, got, want)
		}
	}
}
