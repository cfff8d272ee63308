package blackbox

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func encodeEntry(e Entry) []byte {
	buf := make([]byte, EntrySize)
	binary.LittleEndian.PutUint16(buf[0:2], e.EntityID)
	binary.LittleEndian.PutUint16(buf[2:4], e.SignalID)
	binary.LittleEndian.PutUint16(buf[4:6], e.SrcID)
	binary.LittleEndian.PutUint16(buf[6:8], e.State)
	binary.LittleEndian.PutUint32(buf[8:12], e.Timestamp)
	return buf
}

func TestDecodeBinary(t *testing.T) {
	entries := []Entry{
		{EntityID: 1, SignalID: 0x0101, SrcID: 2, State: 1, Timestamp: 100},
		{EntityID: 2, SignalID: 0x0102, SrcID: 1, State: 3, Timestamp: 150},
	}
	var data []byte
	for _, e := range entries {
		data = append(data, encodeEntry(e)...)
	}

	dump, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dump.Count() != 2 {
		t.Fatalf("count: %d want 2", dump.Count())
	}
	if dump.ByteSize != len(data) {
		t.Fatalf("byte size: %d want %d", dump.ByteSize, len(data))
	}
	for i := range entries {
		if dump.Entries[i] != entries[i] {
			t.Fatalf("entry %d mismatch: %+v", i, dump.Entries[i])
		}
	}
}

func TestDecodeSkipsEmptySlots(t *testing.T) {
	var data []byte
	data = append(data, encodeEntry(Entry{EntityID: 1, SignalID: 1, Timestamp: 10})...)
	data = append(data, encodeEntry(Entry{})...) // unused ring slot
	data = append(data, encodeEntry(Entry{EntityID: 0, SignalID: 0, SrcID: 9, State: 9, Timestamp: 99})...)
	data = append(data, encodeEntry(Entry{EntityID: 2, SignalID: 5, Timestamp: 20})...)

	dump, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dump.Count() != 2 {
		t.Fatalf("count: %d want 2", dump.Count())
	}
	if dump.Entries[0].EntityID != 1 || dump.Entries[1].EntityID != 2 {
		t.Fatalf("kept entries out of order: %+v", dump.Entries)
	}
}

func TestDecodeDiscardsTrailingPartial(t *testing.T) {
	data := encodeEntry(Entry{EntityID: 1, SignalID: 1})
	data = append(data, 0xDE, 0xAD, 0xBE) // partial record

	dump, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dump.Count() != 1 {
		t.Fatalf("count: %d want 1", dump.Count())
	}
}

func TestDecodeHexWithWhitespace(t *testing.T) {
	raw := encodeEntry(Entry{EntityID: 3, SignalID: 6, SrcID: 1, State: 2, Timestamp: 500})
	encoded := hex.EncodeToString(raw)
	spaced := "  " + encoded[:8] + " " + encoded[8:16] + "\n" + encoded[16:] + "\r\n"

	dump, err := Decode([]byte(spaced))
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	if dump.Count() != 1 {
		t.Fatalf("count: %d want 1", dump.Count())
	}
	want := Entry{EntityID: 3, SignalID: 6, SrcID: 1, State: 2, Timestamp: 500}
	if dump.Entries[0] != want {
		t.Fatalf("entry mismatch: %+v", dump.Entries[0])
	}
}

func TestDecodeHexUppercase(t *testing.T) {
	// entity_id=0x00AB signal_id=0x00CD, little-endian, uppercase digits.
	upper := []byte("AB00" + "CD00" + "0000" + "0000" + "00000000")
	dump, err := Decode(upper)
	if err != nil {
		t.Fatalf("decode uppercase hex: %v", err)
	}
	if dump.Count() != 1 || dump.Entries[0].EntityID != 0x00AB || dump.Entries[0].SignalID != 0x00CD {
		t.Fatalf("dump: %+v", dump)
	}
}

func TestDecodeOddHexIsFormatError(t *testing.T) {
	_, err := Decode([]byte("0123456"))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	data := encodeEntry(Entry{EntityID: 7, SignalID: 3, Timestamp: 42})
	path := filepath.Join(t.TempDir(), "dump.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}

	dump, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if dump.Count() != 1 || dump.Entries[0].EntityID != 7 {
		t.Fatalf("dump: %+v", dump)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
