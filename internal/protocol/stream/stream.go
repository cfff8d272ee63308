// Package stream turns an unreliable byte stream into a sequence of decoded
// signals. The decoder keeps a sliding window over the incoming bytes and
// recovers from corruption or misalignment by dropping a single byte at the
// failed sync position and retrying.
package stream

import (
	"errors"

	"github.com/danmuck/reactorctl/internal/protocol/frame"
)

// compactThreshold bounds how far the read cursor may run ahead of the buffer
// start before the consumed prefix is released. Compaction is representation
// only; decode results are unaffected.
const compactThreshold = 4096

// Stats counts decoder activity since construction.
type Stats struct {
	FramesDecoded  uint64
	ChecksumErrors uint64
	BytesDropped   uint64
	BytesConsumed  uint64
}

// Decoder is an incremental frame decoder. It is not safe for concurrent use;
// a single consumer owns it and feeds it chunks as they arrive.
type Decoder struct {
	buf   []byte
	pos   int
	stats Stats
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk and returns every signal that can now be decoded, in
// wire order. Partial frames stay buffered for the next call, so splitting a
// stream across Feed calls at arbitrary boundaries yields the same signals
// as one call with the whole stream.
func (d *Decoder) Feed(chunk []byte) []frame.Signal {
	d.buf = append(d.buf, chunk...)

	var out []frame.Signal
	for {
		res, err := frame.Decode(d.buf[d.pos:])
		switch {
		case err == nil:
			d.pos += res.Consumed
			d.stats.FramesDecoded++
			d.stats.BytesDropped += uint64(res.Start)
			d.stats.BytesConsumed += uint64(res.Consumed)
			out = append(out, res.Signal)

		case errors.Is(err, frame.ErrIncomplete):
			// Pre-sync garbage is gone for good; the tail may still grow
			// into a frame.
			d.pos += res.Consumed
			d.stats.BytesDropped += uint64(res.Consumed)
			d.stats.BytesConsumed += uint64(res.Consumed)
			d.compact()
			return out

		default:
			// Checksum mismatch or absurd length: drop one byte at the sync
			// position and rescan. Each byte is dropped at most once, so the
			// total work stays linear in the stream length.
			d.pos += res.Consumed
			d.stats.ChecksumErrors++
			d.stats.BytesDropped += uint64(res.Consumed)
			d.stats.BytesConsumed += uint64(res.Consumed)
		}
	}
}

// Stats returns a copy of the running counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Pending reports how many bytes are buffered awaiting a complete frame.
func (d *Decoder) Pending() int {
	return len(d.buf) - d.pos
}

func (d *Decoder) compact() {
	if d.pos < compactThreshold {
		return
	}
	remaining := len(d.buf) - d.pos
	copy(d.buf, d.buf[d.pos:])
	d.buf = d.buf[:remaining]
	d.pos = 0
}
