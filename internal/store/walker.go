package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/stlalpha/qwk/internal/logging"
	"github.com/stlalpha/qwk/internal/recordio"
	"github.com/stlalpha/qwk/internal/validate"
)

// FileName is the canonical message store name inside a packet.
const FileName = "MESSAGES.DAT"

// DefaultMaxMessageSizeMB bounds a single message's body, expressed in
// megabytes; one block is 128 bytes.
const DefaultMaxMessageSizeMB = 16

// BlocksPerMB is the number of store records in one megabyte.
const BlocksPerMB = 1024 * 1024 / recordio.RecordSize

// Limits bounds resource use during a store walk.
type Limits struct {
	// MaxBlocksPerMessage caps the header's declared block count.
	// Zero means the default derived from DefaultMaxMessageSizeMB.
	MaxBlocksPerMessage int
}

func (l Limits) maxBlocks() int {
	if l.MaxBlocksPerMessage > 0 {
		return l.MaxBlocksPerMessage
	}
	return DefaultMaxMessageSizeMB * BlocksPerMB
}

// Walker is a single-pass iterator over the message store. The store
// is consumed record-by-record in an absolute order: header record,
// validation, body records, content construction. Every path that moves
// on past a message consumes its declared body blocks so the stream
// stays aligned; an abort ends the walk without reading them. Once a
// header fails the plausibility check the walk stops,
// because misalignment makes every later record suspect.
//
// Walkers are not restartable and not safe for concurrent use.
type Walker struct {
	rr     *recordio.Reader
	ctx    *validate.Context
	limits Limits
	file   string

	msg   *Message
	count int
	err   error
	done  bool
	began bool
}

// NewWalker returns a Walker over the store stream r, reporting
// anomalies to ctx.
func NewWalker(r io.Reader, ctx *validate.Context, limits Limits) *Walker {
	return &Walker{
		rr:     recordio.NewReader(r),
		ctx:    ctx,
		limits: limits,
		file:   FileName,
	}
}

// Next advances to the next message. It returns false when the store
// is exhausted or the walk aborted; check Err afterwards.
func (w *Walker) Next() bool {
	if w.done {
		return false
	}

	if !w.began {
		w.began = true
		// The store opens with one copyright/reserved record that is
		// consumed and discarded.
		var copyright [recordio.RecordSize]byte
		if err := w.rr.ReadRecord(copyright[:]); err != nil {
			w.finish(w.mapReadErr(err, "copyright record"))
			return false
		}
	}

	for {
		headerOffset := w.rr.Records()
		var rec [recordio.RecordSize]byte
		if err := w.rr.ReadRecord(rec[:]); err != nil {
			w.finish(w.mapReadErr(err, "header record"))
			return false
		}

		loc := validate.Locator{File: w.file, RecordOffset: headerOffset}

		// Header phase: an implausible record is misalignment
		// evidence, and recovery is not attempted.
		if reason := implausibility(rec[:]); reason != "" {
			logging.DebugRecord("store: implausible header", rec[:])
			w.finish(w.ctx.Error(validate.ImplausibleHeader, loc, "%s", reason))
			return false
		}

		hdr, err := ParseHeader(rec[:], w.ctx, loc)
		if err != nil {
			// Plausible but unparseable is still misalignment evidence.
			w.finish(w.ctx.Error(validate.ImplausibleHeader, loc, "%v", err))
			return false
		}
		loc.MessageNumber = hdr.Number

		// Validation phase: decide what happens after the body read.
		// Only an abort (strict mode) ends the walk before that read.
		bodyBlocks := hdr.BodyBlocks()
		overLimit := hdr.BlockCount > w.limits.maxBlocks()
		if overLimit {
			if aerr := w.ctx.Error(validate.BlockCountExceedsLimit, loc,
				"block count %d exceeds limit %d", hdr.BlockCount, w.limits.maxBlocks()); aerr != nil {
				w.finish(aerr)
				return false
			}
		}

		// Body phase: always runs once validation did not abort, even
		// for an oversized message. Skipping these reads would
		// misalign every message that follows.
		var body []byte
		if !overLimit {
			body = make([]byte, 0, bodyBlocks*recordio.RecordSize)
		}
		var block [recordio.RecordSize]byte
		for i := 0; i < bodyBlocks; i++ {
			if err := w.rr.ReadRecord(block[:]); err != nil {
				w.finish(w.mapReadErr(err, fmt.Sprintf("body block %d of message %d", i+1, hdr.Number)))
				return false
			}
			if !overLimit {
				body = append(body, block[:]...)
			}
		}

		// Counter phase.
		w.count++

		if overLimit {
			logging.Debug("store: skipped oversized message %d (%d blocks)", hdr.Number, hdr.BlockCount)
			continue
		}

		// Content phase.
		m := &Message{Header: hdr, RawBody: body}
		lines := splitBody(body)
		m.Kludges, m.Body = extractKludges(lines, w.ctx, loc)
		liftExtended(m)
		w.msg = m
		return true
	}
}

// Message returns the message produced by the last successful Next.
func (w *Walker) Message() *Message {
	return w.msg
}

// Err returns the abort cause, if any. A clean end of stream and a
// recorded-only anomaly both leave Err nil.
func (w *Walker) Err() error {
	return w.err
}

// Count returns the number of messages consumed, including oversized
// ones that were drained but not yielded.
func (w *Walker) Count() int {
	return w.count
}

// BytesRead returns the bytes consumed from the store stream.
func (w *Walker) BytesRead() int64 {
	return w.rr.BytesRead()
}

func (w *Walker) finish(err error) {
	w.done = true
	w.msg = nil
	w.err = err
}

// mapReadErr classifies a record-read failure. Clean EOF ends the walk
// without error; a partial record is fatal in every mode; anything
// else is an I/O failure.
func (w *Walker) mapReadErr(err error, what string) error {
	if err == io.EOF {
		return nil
	}
	loc := validate.Locator{File: w.file, RecordOffset: w.rr.Records()}
	if errors.Is(err, recordio.ErrTruncated) {
		return w.ctx.Fatal(validate.TruncatedRecord, loc, "%s: %v", what, err)
	}
	return fmt.Errorf("store: %s: %w", what, err)
}
