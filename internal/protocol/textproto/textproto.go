// Package textproto decodes the ASCII side channel the firmware multiplexes
// onto the same serial link as the binary frames. Messages are delimited by
// STX/ETX control bytes and carry comma-separated numeric fields behind a
// two-letter tag, e.g. "UR:0,3,5,0,12345".
package textproto

import (
	"bytes"
	"strconv"
	"strings"
)

const (
	STX byte = 0x02
	ETX byte = 0x03

	// maxBuffered caps bytes held while waiting for an ETX. A stream that
	// never terminates a message (wrong baud rate, binary noise after a
	// stray STX) must not grow the buffer without bound.
	maxBuffered = 4096
)

// Trace event type codes carried in the UR message's first field. They match
// the firmware's trace event enumeration.
const (
	EventDispatchStart uint8 = 0
	EventDispatchEnd   uint8 = 1
	EventStateChange   uint8 = 2
	EventSignalEmit    uint8 = 3
	EventSignalRecv    uint8 = 4
)

// Message is one decoded side-channel message. The concrete types below form
// the closed set of recognized tags.
type Message interface {
	tag() string
}

// TraceEvent is a UR message: one live trace event. Data1/Data2 hold
// signal_id/src_id for dispatch and signal events and from/to state for
// state-change events.
type TraceEvent struct {
	Type      uint8
	EntityID  uint16
	Data1     uint32
	Data2     uint32
	Timestamp uint32
}

// EntityName is a UN message registering a human-readable entity name.
type EntityName struct {
	EntityID uint16
	Name     string
}

// SignalName is a UG message registering a human-readable signal name.
type SignalName struct {
	SignalID uint16
	Name     string
}

// StateName is a US message registering a human-readable state name.
type StateName struct {
	EntityID uint16
	StateID  uint16
	Name     string
}

// MemStats is a UM message: a heap usage snapshot.
type MemStats struct {
	FreeHeap    uint32
	MinFreeHeap uint32
}

func (TraceEvent) tag() string { return "UR" }
func (EntityName) tag() string { return "UN" }
func (SignalName) tag() string { return "UG" }
func (StateName) tag() string  { return "US" }
func (MemStats) tag() string   { return "UM" }

// Stats counts scanner activity since construction.
type Stats struct {
	Messages uint64
	Dropped  uint64
}

// Scanner is an incremental STX/ETX message scanner. Like the binary frame
// decoder it is owned by a single consumer and fed chunks as they arrive.
type Scanner struct {
	buf   []byte
	stats Stats
}

func NewScanner() *Scanner {
	return &Scanner{}
}

// Feed appends chunk and returns every complete, well-formed message found.
// Malformed messages (unknown tag, wrong field count, non-numeric field) are
// dropped silently and scanning continues with the next delimiter.
func (s *Scanner) Feed(chunk []byte) []Message {
	s.buf = append(s.buf, chunk...)

	var out []Message
	for {
		end := bytes.IndexByte(s.buf, ETX)
		if end < 0 {
			start := bytes.IndexByte(s.buf, STX)
			if start < 0 {
				// Nothing resembling a message; everything is inter-message
				// noise (likely binary frames sharing the link).
				s.buf = s.buf[:0]
				return out
			}
			if len(s.buf)-start > maxBuffered {
				s.buf = s.buf[:0]
				s.stats.Dropped++
				return out
			}
			// Keep the unterminated tail for the next chunk.
			s.buf = append(s.buf[:0], s.buf[start:]...)
			return out
		}
		// Anchor on the last STX before this ETX so binary noise carrying a
		// stray STX cannot swallow the real message behind it.
		start := bytes.LastIndexByte(s.buf[:end], STX)
		if start < 0 {
			// Terminator with no opener is line noise, not a message.
			s.buf = append(s.buf[:0], s.buf[end+1:]...)
			continue
		}
		content := string(s.buf[start+1 : end])
		s.buf = append(s.buf[:0], s.buf[end+1:]...)

		if msg, ok := parseMessage(content); ok {
			s.stats.Messages++
			out = append(out, msg)
		} else {
			s.stats.Dropped++
		}
	}
}

// Stats returns a copy of the running counters.
func (s *Scanner) Stats() Stats {
	return s.stats
}

func parseMessage(content string) (Message, bool) {
	tag, rest, ok := strings.Cut(content, ":")
	if !ok {
		return nil, false
	}
	fields := strings.Split(rest, ",")

	switch tag {
	case "UR":
		if len(fields) < 5 {
			return nil, false
		}
		typ, ok1 := parseU8(fields[0])
		ent, ok2 := parseU16(fields[1])
		d1, ok3 := parseU32(fields[2])
		d2, ok4 := parseU32(fields[3])
		ts, ok5 := parseU32(fields[4])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return nil, false
		}
		return TraceEvent{Type: typ, EntityID: ent, Data1: d1, Data2: d2, Timestamp: ts}, true

	case "UN":
		if len(fields) < 2 {
			return nil, false
		}
		ent, ok := parseU16(fields[0])
		if !ok {
			return nil, false
		}
		return EntityName{EntityID: ent, Name: fields[1]}, true

	case "UG":
		if len(fields) < 2 {
			return nil, false
		}
		sig, ok := parseU16(fields[0])
		if !ok {
			return nil, false
		}
		return SignalName{SignalID: sig, Name: fields[1]}, true

	case "US":
		if len(fields) < 3 {
			return nil, false
		}
		ent, ok1 := parseU16(fields[0])
		st, ok2 := parseU16(fields[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		return StateName{EntityID: ent, StateID: st, Name: fields[2]}, true

	case "UM":
		if len(fields) < 2 {
			return nil, false
		}
		free, ok1 := parseU32(fields[0])
		minFree, ok2 := parseU32(fields[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		return MemStats{FreeHeap: free, MinFreeHeap: minFree}, true
	}
	return nil, false
}

func parseU8(s string) (uint8, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err == nil
}

func parseU16(s string) (uint16, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	return uint16(v), err == nil
}

func parseU32(s string) (uint32, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	return uint32(v), err == nil
}
