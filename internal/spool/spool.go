// Package spool watches an inbound directory for arriving QWK packets
// and hands each one to a processing callback, the way a mail door's
// intake loop would. Arrivals are detected by filesystem events with a
// periodic sweep as a backstop for files that land while the watcher
// is down or over shares that do not deliver events.
package spool

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/stlalpha/qwk/internal/logging"
)

// DefaultSweepSchedule rescans the inbound directory every five
// minutes (cron format with seconds).
const DefaultSweepSchedule = "0 */5 * * * *"

// settleDelay is how long a file must sit unchanged before it is
// handed off, so half-uploaded packets are not processed.
const settleDelay = 2 * time.Second

// Job is one packet arrival.
type Job struct {
	ID   string
	Path string
}

// Handler processes one arrived packet.
type Handler func(Job) error

// Watcher drives the intake loop for one inbound directory.
type Watcher struct {
	dir      string
	handler  Handler
	schedule string

	fsw  *fsnotify.Watcher
	cron *cron.Cron

	mu   sync.Mutex
	seen map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for dir. schedule overrides the sweep cadence
// when non-empty.
func New(dir string, handler Handler, schedule string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Watcher{
		dir:      dir,
		handler:  handler,
		schedule: schedule,
		fsw:      fsw,
		seen:     make(map[string]time.Time),
	}, nil
}

// Start begins watching. It sweeps once immediately so packets already
// waiting in the directory are picked up, then reacts to events until
// the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.cron = cron.New(cron.WithSeconds())
	if _, err := w.cron.AddFunc(w.schedule, w.sweep); err != nil {
		return err
	}
	w.cron.Start()
	log.Printf("INFO: Watching %s for inbound packets (sweep %s)", w.dir, w.schedule)

	w.sweep()

	w.wg.Add(1)
	go w.eventLoop()
	return nil
}

// Stop halts the watcher and waits for in-flight handling to finish.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.cron != nil {
		<-w.cron.Stop().Done()
	}
	w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isPacketName(ev.Name) {
				continue
			}
			logging.Debug("spool: event %s on %s", ev.Op, ev.Name)
			w.dispatchWhenSettled(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("WARN: spool watcher error: %v", err)
		}
	}
}

// sweep scans the directory for packets the event stream missed.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Printf("WARN: spool sweep of %s failed: %v", w.dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isPacketName(e.Name()) {
			continue
		}
		w.dispatchWhenSettled(filepath.Join(w.dir, e.Name()))
	}
}

// dispatchWhenSettled hands a packet to the handler once its size has
// stopped changing. A path is not dispatched again while an earlier
// dispatch for it is still settling or being handled; once that
// dispatch ends, a later event or sweep can dispatch it again.
func (w *Watcher) dispatchWhenSettled(path string) {
	w.mu.Lock()
	if _, busy := w.seen[path]; busy {
		w.mu.Unlock()
		return
	}
	w.seen[path] = time.Now()
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.seen, path)
			w.mu.Unlock()
		}()

		prevSize := int64(-1)
		for {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(settleDelay):
			}
			info, err := os.Stat(path)
			if err != nil {
				return // vanished before it settled
			}
			if info.Size() == prevSize {
				break
			}
			prevSize = info.Size()
		}

		job := Job{ID: uuid.NewString(), Path: path}
		if err := w.handler(job); err != nil {
			log.Printf("WARN: spool job %s for %s failed: %v", job.ID, filepath.Base(path), err)
			return
		}
		logging.Debug("spool: job %s handled %s", job.ID, filepath.Base(path))
	}()
}

// isPacketName matches the inbound extensions a door produces.
func isPacketName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".qwk", ".rep":
		return true
	}
	return false
}
