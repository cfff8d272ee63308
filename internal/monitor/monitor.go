// Package monitor runs a live bridge session: it reads the mixed byte stream
// coming off the firmware bridge, routes bytes through the binary frame
// decoder and the text side-channel scanner, maintains the name registry and
// a bounded ring of recent events, and publishes everything to subscribers.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/reactorctl/internal/names"
	"github.com/danmuck/reactorctl/internal/observability"
	"github.com/danmuck/reactorctl/internal/protocol/frame"
	"github.com/danmuck/reactorctl/internal/protocol/stream"
	"github.com/danmuck/reactorctl/internal/protocol/textproto"
	"github.com/danmuck/reactorctl/internal/trace"
)

// ErrClosed is returned by senders after the session ends.
var ErrClosed = errors.New("monitor: session closed")

// Broadcaster receives every decoded event for fan-out. The ws hub satisfies
// it; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, any) {}

// Monitor owns one bridge connection. Reads happen on the Run goroutine;
// writes are serialized by a mutex so API handlers can inject concurrently.
type Monitor struct {
	conn  io.ReadWriter
	log   zerolog.Logger
	hub   Broadcaster
	names *names.Registry

	dec   *stream.Decoder
	scan  *textproto.Scanner
	start time.Time

	wmu sync.Mutex // guards writes to conn

	mu      sync.Mutex // guards everything below
	recent  []trace.Record
	head    int
	filled  bool
	mem     textproto.MemStats
	memSeen bool
	closed  bool

	lastStream stream.Stats
	lastText   textproto.Stats
}

// Options configures a session. Zero values get sensible defaults.
type Options struct {
	Registry    *names.Registry
	Broadcaster Broadcaster
	EventBuffer int
	Logger      zerolog.Logger
}

// New wraps an established bridge connection. Run must be called to start
// consuming.
func New(conn io.ReadWriter, opts Options) *Monitor {
	if opts.Registry == nil {
		opts.Registry = names.NewRegistry()
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = nopBroadcaster{}
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 4096
	}
	return &Monitor{
		conn:   conn,
		log:    opts.Logger,
		hub:    opts.Broadcaster,
		names:  opts.Registry,
		dec:    stream.NewDecoder(),
		scan:   textproto.NewScanner(),
		start:  time.Now(),
		recent: make([]trace.Record, opts.EventBuffer),
	}
}

// Names exposes the registry backing this session.
func (m *Monitor) Names() *names.Registry {
	return m.names
}

// Run consumes the connection until ctx is cancelled or the read side fails.
// A reader goroutine pulls chunks off the connection; the Run goroutine does
// all decoding so the decoders need no locking.
func (m *Monitor) Run(ctx context.Context) error {
	chunks := make(chan []byte, 64)
	readErr := make(chan error, 1)

	go func() {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := m.conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					readErr <- ctx.Err()
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.markClosed()
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				m.markClosed()
				err := <-readErr
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			m.consume(chunk)
		}
	}
}

// consume feeds one chunk to both protocol layers. Each layer treats the
// other's bytes as noise, so no demultiplexing is needed up front.
func (m *Monitor) consume(chunk []byte) {
	for _, sig := range m.dec.Feed(chunk) {
		m.recordSignal(sig)
	}
	for _, msg := range m.scan.Feed(chunk) {
		m.handleMessage(msg)
	}
	m.publishMetrics()
}

func (m *Monitor) recordSignal(sig frame.Signal) {
	// The wire frame carries no timestamp; stamp arrival relative to session
	// start so the ring stays in one millisecond clock domain.
	// Bus signals carry no destination; attribute them to the emitter.
	rec := trace.Record{
		Timestamp: uint64(time.Since(m.start).Milliseconds()),
		Kind:      trace.KindSignalEmit,
		EntityID:  sig.SrcID,
		SignalID:  sig.ID,
		SrcID:     sig.SrcID,
	}
	m.append(rec)
	m.hub.Broadcast("signal", rec)
}

func (m *Monitor) handleMessage(msg textproto.Message) {
	switch v := msg.(type) {
	case textproto.TraceEvent:
		observability.RecordTextMessage("UR")
		ev, ok := trace.FromWire(v)
		if !ok {
			m.log.Warn().Uint8("type", v.Type).Msg("unknown trace event type")
			return
		}
		rec := trace.Flatten([]trace.Event{ev})[0]
		m.append(rec)
		m.hub.Broadcast("trace", rec)
	case textproto.EntityName:
		observability.RecordTextMessage("UN")
		m.names.Apply(v)
	case textproto.SignalName:
		observability.RecordTextMessage("UG")
		m.names.Apply(v)
	case textproto.StateName:
		observability.RecordTextMessage("US")
		m.names.Apply(v)
	case textproto.MemStats:
		observability.RecordTextMessage("UM")
		m.mu.Lock()
		m.mem = v
		m.memSeen = true
		m.mu.Unlock()
		m.hub.Broadcast("memory", v)
	}
}

func (m *Monitor) append(rec trace.Record) {
	m.mu.Lock()
	m.recent[m.head] = rec
	m.head++
	if m.head == len(m.recent) {
		m.head = 0
		m.filled = true
	}
	m.mu.Unlock()
}

// publishMetrics pushes decoder counter deltas to prometheus.
func (m *Monitor) publishMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.dec.Stats()
	observability.RecordStream(
		cur.FramesDecoded-m.lastStream.FramesDecoded,
		cur.ChecksumErrors-m.lastStream.ChecksumErrors,
		cur.BytesDropped-m.lastStream.BytesDropped,
	)
	m.lastStream = cur

	text := m.scan.Stats()
	observability.RecordTextDropped(text.Dropped - m.lastText.Dropped)
	m.lastText = text
}

// Records returns the retained events in arrival order.
func (m *Monitor) Records() []trace.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.filled {
		out := make([]trace.Record, m.head)
		copy(out, m.recent[:m.head])
		return out
	}
	out := make([]trace.Record, 0, len(m.recent))
	out = append(out, m.recent[m.head:]...)
	out = append(out, m.recent[:m.head]...)
	return out
}

// Analyze runs the trace analyzer over the retained events with live names.
func (m *Monitor) Analyze() trace.Analysis {
	return trace.Analyze(m.Records(), m.names)
}

// Memory returns the latest firmware heap report, if one arrived.
func (m *Monitor) Memory() (textproto.MemStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem, m.memSeen
}

// Stats snapshots both decoder layers.
func (m *Monitor) Stats() (stream.Stats, textproto.Stats) {
	return m.dec.Stats(), m.scan.Stats()
}

// SendSignal encodes sig as a binary frame and writes it to the bridge.
func (m *Monitor) SendSignal(sig frame.Signal) error {
	return m.write(frame.Encode(sig))
}

// SendCommand writes a shell command line to the bridge.
func (m *Monitor) SendCommand(cmd []byte) error {
	return m.write(cmd)
}

func (m *Monitor) write(data []byte) error {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return ErrClosed
	}

	m.wmu.Lock()
	defer m.wmu.Unlock()
	if _, err := m.conn.Write(data); err != nil {
		return fmt.Errorf("monitor: write: %w", err)
	}
	return nil
}

func (m *Monitor) markClosed() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
