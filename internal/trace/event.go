// Package trace models firmware trace events and turns an ordered event
// stream into a resolved timeline, per-entity statistics, dispatch timings,
// and heuristic fault findings.
package trace

import (
	"github.com/danmuck/reactorctl/internal/blackbox"
	"github.com/danmuck/reactorctl/internal/protocol/textproto"
)

// EventKind discriminates the closed set of trace event variants.
type EventKind uint8

const (
	KindDispatchStart EventKind = iota
	KindDispatchEnd
	KindStateChange
	KindSignalEmit
	KindSignalRecv
)

func (k EventKind) String() string {
	switch k {
	case KindDispatchStart:
		return "DISPATCH_START"
	case KindDispatchEnd:
		return "DISPATCH_END"
	case KindStateChange:
		return "STATE_CHANGE"
	case KindSignalEmit:
		return "SIGNAL_EMIT"
	case KindSignalRecv:
		return "SIGNAL_RECV"
	}
	return "UNKNOWN"
}

// Event is one trace event. The concrete variants below form the closed set;
// each carries only the fields meaningful for its kind.
type Event interface {
	Kind() EventKind
	When() uint64
	Entity() uint16
}

// DispatchStart marks an entity beginning to process a signal.
type DispatchStart struct {
	Timestamp uint64
	EntityID  uint16
	SignalID  uint16
	SrcID     uint16
}

// DispatchEnd marks an entity finishing a signal dispatch.
type DispatchEnd struct {
	Timestamp uint64
	EntityID  uint16
	SignalID  uint16
	SrcID     uint16
}

// StateChange marks an entity state-machine transition.
type StateChange struct {
	Timestamp uint64
	EntityID  uint16
	FromState uint16
	ToState   uint16
}

// SignalEmit marks a signal leaving an entity.
type SignalEmit struct {
	Timestamp uint64
	EntityID  uint16
	SignalID  uint16
	SrcID     uint16
}

// SignalRecv marks a signal arriving at an entity.
type SignalRecv struct {
	Timestamp uint64
	EntityID  uint16
	SignalID  uint16
	SrcID     uint16
}

func (e DispatchStart) Kind() EventKind { return KindDispatchStart }
func (e DispatchStart) When() uint64    { return e.Timestamp }
func (e DispatchStart) Entity() uint16  { return e.EntityID }

func (e DispatchEnd) Kind() EventKind { return KindDispatchEnd }
func (e DispatchEnd) When() uint64    { return e.Timestamp }
func (e DispatchEnd) Entity() uint16  { return e.EntityID }

func (e StateChange) Kind() EventKind { return KindStateChange }
func (e StateChange) When() uint64    { return e.Timestamp }
func (e StateChange) Entity() uint16  { return e.EntityID }

func (e SignalEmit) Kind() EventKind { return KindSignalEmit }
func (e SignalEmit) When() uint64    { return e.Timestamp }
func (e SignalEmit) Entity() uint16  { return e.EntityID }

func (e SignalRecv) Kind() EventKind { return KindSignalRecv }
func (e SignalRecv) When() uint64    { return e.Timestamp }
func (e SignalRecv) Entity() uint16  { return e.EntityID }

// Record is the analyzer's flattened view of one event: every field the
// analysis pass needs, regardless of which variant (or black box entry)
// produced it.
type Record struct {
	Timestamp uint64    `json:"timestamp_ms"`
	Kind      EventKind `json:"kind"`
	EntityID  uint16    `json:"entity_id"`
	SignalID  uint16    `json:"signal_id"`
	SrcID     uint16    `json:"source_id"`
	State     uint16    `json:"state_id"`
}

// Flatten converts events into analyzer records. State changes carry the
// destination state; signal-bearing variants carry signal and source ids.
func Flatten(events []Event) []Record {
	out := make([]Record, 0, len(events))
	for _, ev := range events {
		rec := Record{Timestamp: ev.When(), Kind: ev.Kind(), EntityID: ev.Entity()}
		switch e := ev.(type) {
		case DispatchStart:
			rec.SignalID, rec.SrcID = e.SignalID, e.SrcID
		case DispatchEnd:
			rec.SignalID, rec.SrcID = e.SignalID, e.SrcID
		case StateChange:
			rec.State = e.ToState
		case SignalEmit:
			rec.SignalID, rec.SrcID = e.SignalID, e.SrcID
		case SignalRecv:
			rec.SignalID, rec.SrcID = e.SignalID, e.SrcID
		}
		out = append(out, rec)
	}
	return out
}

// FromBlackbox adapts decoded black box entries to analyzer records. The
// firmware logs each entry at signal reception, so entries map to
// SIGNAL_RECV with the entity's state at capture time.
func FromBlackbox(dump blackbox.Dump) []Record {
	out := make([]Record, 0, len(dump.Entries))
	for _, e := range dump.Entries {
		out = append(out, Record{
			Timestamp: uint64(e.Timestamp),
			Kind:      KindSignalRecv,
			EntityID:  e.EntityID,
			SignalID:  e.SignalID,
			SrcID:     e.SrcID,
			State:     e.State,
		})
	}
	return out
}

// FromWire converts a live side-channel trace message into an Event. The
// second return is false for event type codes this build does not know.
func FromWire(m textproto.TraceEvent) (Event, bool) {
	ts := uint64(m.Timestamp)
	switch m.Type {
	case textproto.EventDispatchStart:
		return DispatchStart{Timestamp: ts, EntityID: m.EntityID, SignalID: uint16(m.Data1), SrcID: uint16(m.Data2)}, true
	case textproto.EventDispatchEnd:
		return DispatchEnd{Timestamp: ts, EntityID: m.EntityID, SignalID: uint16(m.Data1), SrcID: uint16(m.Data2)}, true
	case textproto.EventStateChange:
		return StateChange{Timestamp: ts, EntityID: m.EntityID, FromState: uint16(m.Data1), ToState: uint16(m.Data2)}, true
	case textproto.EventSignalEmit:
		return SignalEmit{Timestamp: ts, EntityID: m.EntityID, SignalID: uint16(m.Data1), SrcID: uint16(m.Data2)}, true
	case textproto.EventSignalRecv:
		return SignalRecv{Timestamp: ts, EntityID: m.EntityID, SignalID: uint16(m.Data1), SrcID: uint16(m.Data2)}, true
	}
	return nil, false
}
