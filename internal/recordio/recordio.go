// Package recordio reads fixed-size records from a byte stream.
//
// The message store is consumed through decompression streams that are
// allowed to return fewer bytes than requested even when more data
// remains. A single short read that goes unnoticed misaligns every
// record that follows, so all reads here loop until the record is full
// or the source reports a genuine end of stream.
package recordio

import (
	"errors"
	"fmt"
	"io"
)

// RecordSize is the size of one message store record in bytes.
const RecordSize = 128

// ErrTruncated reports a partial record: the source ended after
// delivering at least one byte but fewer than the requested count.
var ErrTruncated = errors.New("recordio: truncated record")

// Reader wraps a byte source and exposes exact-size reads.
type Reader struct {
	r       io.Reader
	records int64
	bytes   int64
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadExact fills buf completely from the source.
//
// It returns nil when buf was filled, io.EOF when the stream ended
// cleanly before the first byte of this read, and an error wrapping
// ErrTruncated when the stream ended partway through.
func (r *Reader) ReadExact(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	switch {
	case err == nil:
		r.bytes += int64(len(buf))
		return nil
	case err == io.EOF:
		return io.EOF
	case err == io.ErrUnexpectedEOF:
		r.bytes += int64(n)
		return fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, n, len(buf))
	default:
		r.bytes += int64(n)
		return fmt.Errorf("recordio: read: %w", err)
	}
}

// ReadRecord fills buf, which must be exactly RecordSize bytes, with
// the next record and advances the record counter.
func (r *Reader) ReadRecord(buf []byte) error {
	if len(buf) != RecordSize {
		return fmt.Errorf("recordio: buffer size %d, want %d", len(buf), RecordSize)
	}
	if err := r.ReadExact(buf); err != nil {
		return err
	}
	r.records++
	return nil
}

// Records returns the number of complete records consumed so far.
func (r *Reader) Records() int64 {
	return r.records
}

// BytesRead returns the total bytes consumed, including any partial
// record delivered before a truncation error.
func (r *Reader) BytesRead() int64 {
	return r.bytes
}
