package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksumKnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE check value for the ASCII digits "123456789".
	if got := Checksum([]byte("123456789")); got != 0x29B1 {
		t.Fatalf("checksum: got 0x%04X want 0x29B1", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Signal{ID: 1, SrcID: 2, Payload: [4]byte{0xAA, 0xBB, 0xCC, 0xDD}}
	buf := Encode(in)
	if len(buf) != HeaderLen+PayloadLen+CRCLen {
		t.Fatalf("frame length: got %d want %d", len(buf), HeaderLen+PayloadLen+CRCLen)
	}
	res, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Signal != in {
		t.Fatalf("signal mismatch: got=%+v want=%+v", res.Signal, in)
	}
	if res.Start != 0 || res.Consumed != len(buf) {
		t.Fatalf("unexpected offsets: start=%d consumed=%d", res.Start, res.Consumed)
	}
}

func TestEncodeRoundTripVariedIDs(t *testing.T) {
	ids := []uint16{0, 1, 0x00FF, 0x0100, 0x7FFF, 0x8000, 0xFFFF}
	for _, id := range ids {
		for _, src := range ids {
			in := Signal{ID: id, SrcID: src, Payload: [4]byte{byte(id), byte(id >> 8), byte(src), 0x5A}}
			res, err := Decode(Encode(in))
			if err != nil {
				t.Fatalf("decode id=%d src=%d: %v", id, src, err)
			}
			if res.Signal != in {
				t.Fatalf("round trip id=%d src=%d: got=%+v", id, src, res.Signal)
			}
		}
	}
}

func TestDecodeCorruptedPayload(t *testing.T) {
	buf := Encode(Signal{ID: 1, SrcID: 2, Payload: [4]byte{0xAA, 0xBB, 0xCC, 0xDD}})
	buf[HeaderLen+PayloadLen-1] ^= 0xFF // last payload byte

	res, err := Decode(buf)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	if res.Consumed != 1 {
		t.Fatalf("resync step: consumed=%d want 1", res.Consumed)
	}
}

func TestDecodeSingleBitFlipsAreRejected(t *testing.T) {
	original := Signal{ID: 0x1234, SrcID: 0x0042, Payload: [4]byte{1, 2, 3, 4}}
	valid := Encode(original)
	for i := range valid {
		for bit := 0; bit < 8; bit++ {
			buf := bytes.Clone(valid)
			buf[i] ^= 1 << bit
			res, err := Decode(buf)
			// CRC16 catches every single-bit error in the covered region and
			// a sync-byte flip loses the anchor entirely, so a corrupted
			// frame must never decode back to the original signal.
			if err == nil && res.Signal == original {
				t.Fatalf("flip byte=%d bit=%d decoded as the original frame", i, bit)
			}
		}
	}
}

func TestDecodeIncomplete(t *testing.T) {
	buf := Encode(Signal{ID: 7, SrcID: 9})
	for n := 0; n < len(buf); n++ {
		res, err := Decode(buf[:n])
		if !errors.Is(err, ErrIncomplete) {
			t.Fatalf("prefix %d: expected ErrIncomplete, got %v", n, err)
		}
		if res.Consumed != 0 {
			t.Fatalf("prefix %d: partial frame must be retained, consumed=%d", n, res.Consumed)
		}
	}
}

func TestDecodeSkipsLeadingGarbage(t *testing.T) {
	in := Signal{ID: 0x0101, SrcID: 3, Payload: [4]byte{9, 8, 7, 6}}
	garbage := []byte{0x00, 0x13, 0x37, 0x42}
	buf := append(bytes.Clone(garbage), Encode(in)...)

	res, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Signal != in {
		t.Fatalf("signal mismatch: %+v", res.Signal)
	}
	if res.Start != len(garbage) || res.Consumed != len(buf) {
		t.Fatalf("offsets: start=%d consumed=%d", res.Start, res.Consumed)
	}
}

func TestDecodeNoSyncDiscardsAll(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	res, err := Decode(buf)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if res.Consumed != len(buf) {
		t.Fatalf("garbage without sync must be discardable: consumed=%d", res.Consumed)
	}
}

func TestDecodeOversizedLengthResyncs(t *testing.T) {
	buf := []byte{SyncByte, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	res, err := Decode(buf)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if res.Consumed != 1 {
		t.Fatalf("oversized frame must drop only the sync byte: consumed=%d", res.Consumed)
	}
}
