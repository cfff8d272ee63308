package textproto

import (
	"testing"
)

func wrap(content string) []byte {
	return append(append([]byte{STX}, content...), ETX)
}

func TestFeedParsesEachTag(t *testing.T) {
	s := NewScanner()

	var in []byte
	in = append(in, wrap("UR:0,3,261,7,12345")...)
	in = append(in, wrap("UN:3,Controller")...)
	in = append(in, wrap("UG:261,SIG_HEAT_ON")...)
	in = append(in, wrap("US:3,2,Cooling")...)
	in = append(in, wrap("UM:45056,32768")...)

	msgs := s.Feed(in)
	if len(msgs) != 5 {
		t.Fatalf("parsed %d messages, want 5", len(msgs))
	}

	ev, ok := msgs[0].(TraceEvent)
	if !ok {
		t.Fatalf("message 0: %T", msgs[0])
	}
	want := TraceEvent{Type: EventDispatchStart, EntityID: 3, Data1: 261, Data2: 7, Timestamp: 12345}
	if ev != want {
		t.Fatalf("trace event: got=%+v want=%+v", ev, want)
	}

	if un, ok := msgs[1].(EntityName); !ok || un.EntityID != 3 || un.Name != "Controller" {
		t.Fatalf("entity name: %+v", msgs[1])
	}
	if ug, ok := msgs[2].(SignalName); !ok || ug.SignalID != 261 || ug.Name != "SIG_HEAT_ON" {
		t.Fatalf("signal name: %+v", msgs[2])
	}
	if us, ok := msgs[3].(StateName); !ok || us.EntityID != 3 || us.StateID != 2 || us.Name != "Cooling" {
		t.Fatalf("state name: %+v", msgs[3])
	}
	if um, ok := msgs[4].(MemStats); !ok || um.FreeHeap != 45056 || um.MinFreeHeap != 32768 {
		t.Fatalf("mem stats: %+v", msgs[4])
	}
}

func TestFeedDropsMalformedSilently(t *testing.T) {
	s := NewScanner()

	var in []byte
	in = append(in, wrap("UR:0,3")...)          // too few fields
	in = append(in, wrap("UR:x,3,0,0,1")...)    // non-numeric
	in = append(in, wrap("ZZ:1,2")...)          // unknown tag
	in = append(in, wrap("no-colon")...)        // no tag separator
	in = append(in, wrap("UN:9,Sensor")...)     // valid
	in = append(in, wrap("UM:12,34,extra")...)  // extra fields tolerated

	msgs := s.Feed(in)
	if len(msgs) != 2 {
		t.Fatalf("parsed %d messages, want 2", len(msgs))
	}
	if _, ok := msgs[0].(EntityName); !ok {
		t.Fatalf("message 0: %T", msgs[0])
	}
	if _, ok := msgs[1].(MemStats); !ok {
		t.Fatalf("message 1: %T", msgs[1])
	}
	if st := s.Stats(); st.Dropped != 4 || st.Messages != 2 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestFeedAcrossChunkBoundaries(t *testing.T) {
	in := wrap("UN:1,Pump")
	in = append(in, wrap("UG:5,SIG_SYS_TIMEOUT")...)

	for _, chunkSize := range []int{1, 2, 3, 5} {
		s := NewScanner()
		var msgs []Message
		for off := 0; off < len(in); off += chunkSize {
			end := off + chunkSize
			if end > len(in) {
				end = len(in)
			}
			msgs = append(msgs, s.Feed(in[off:end])...)
		}
		if len(msgs) != 2 {
			t.Fatalf("chunk=%d: parsed %d messages, want 2", chunkSize, len(msgs))
		}
	}
}

func TestFeedIgnoresInterMessageNoise(t *testing.T) {
	s := NewScanner()
	var in []byte
	in = append(in, 0x55, 0x04, 0x00, 0xFF) // binary frame fragment on the same link
	in = append(in, wrap("UN:2,Valve")...)
	in = append(in, 0x00, 0x13)

	msgs := s.Feed(in)
	if len(msgs) != 1 {
		t.Fatalf("parsed %d messages, want 1", len(msgs))
	}
}

func TestFeedRecoversFromStraySTXInNoise(t *testing.T) {
	s := NewScanner()
	var in []byte
	in = append(in, 0x55, STX, 0x07, 0x00) // binary bytes including a stray STX
	in = append(in, wrap("UN:2,Valve")...)

	msgs := s.Feed(in)
	if len(msgs) != 1 {
		t.Fatalf("parsed %d messages, want 1", len(msgs))
	}
	if un, ok := msgs[0].(EntityName); !ok || un.Name != "Valve" {
		t.Fatalf("message: %+v", msgs[0])
	}
}

func TestFeedCapsUnterminatedBuffer(t *testing.T) {
	s := NewScanner()

	junk := make([]byte, maxBuffered+64)
	junk[0] = STX
	for i := 1; i < len(junk); i++ {
		junk[i] = 'A'
	}
	if msgs := s.Feed(junk); len(msgs) != 0 {
		t.Fatalf("unterminated junk produced messages: %d", len(msgs))
	}

	// After the oversized unterminated message is discarded, fresh messages
	// must parse normally.
	msgs := s.Feed(wrap("UN:4,Heater"))
	if len(msgs) != 1 {
		t.Fatalf("scanner did not recover after overflow drop: %d", len(msgs))
	}
}
