// Package blackbox decodes the on-device crash history ring buffer. Dumps
// arrive either as raw binary or as hex-encoded ASCII (optionally with
// whitespace); the format is detected from content, never from a file
// extension.
package blackbox

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// EntrySize is the fixed little-endian record layout:
// entity_id(2) signal_id(2) src_id(2) state(2) timestamp(4).
const EntrySize = 12

// ErrFormat means the buffer looked like hex text but did not decode.
var ErrFormat = errors.New("blackbox: unrecognized dump format")

// Entry is one history record captured by the firmware.
type Entry struct {
	EntityID  uint16
	SignalID  uint16
	SrcID     uint16
	State     uint16
	Timestamp uint32
}

// Dump is a decoded black box buffer. Entries preserve capture order with
// empty ring-buffer slots removed.
type Dump struct {
	Entries  []Entry
	ByteSize int
}

// Count reports how many non-empty entries the dump holds.
func (d Dump) Count() int {
	return len(d.Entries)
}

// Decode parses a dump buffer. Hex text is decoded to raw bytes first. A
// trailing partial record is discarded; a record whose entity and signal ids
// are both zero is an unused slot and is skipped.
func Decode(data []byte) (Dump, error) {
	raw := data
	if isHexText(data) {
		decoded, err := decodeHex(data)
		if err != nil {
			return Dump{}, err
		}
		raw = decoded
	}

	dump := Dump{ByteSize: len(raw)}
	for off := 0; off+EntrySize <= len(raw); off += EntrySize {
		e := Entry{
			EntityID:  binary.LittleEndian.Uint16(raw[off : off+2]),
			SignalID:  binary.LittleEndian.Uint16(raw[off+2 : off+4]),
			SrcID:     binary.LittleEndian.Uint16(raw[off+4 : off+6]),
			State:     binary.LittleEndian.Uint16(raw[off+6 : off+8]),
			Timestamp: binary.LittleEndian.Uint32(raw[off+8 : off+12]),
		}
		if e.EntityID == 0 && e.SignalID == 0 {
			continue
		}
		dump.Entries = append(dump.Entries, e)
	}
	return dump, nil
}

// Load reads and decodes a dump file.
func Load(path string) (Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dump{}, fmt.Errorf("blackbox: load %s: %w", path, err)
	}
	return Decode(data)
}

// isHexText reports whether every byte is a hex digit or whitespace. An
// empty buffer is treated as binary.
func isHexText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
		default:
			return false
		}
	}
	return true
}

func decodeHex(data []byte) ([]byte, error) {
	compact := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
		default:
			compact = append(compact, b)
		}
	}
	if len(compact)%2 != 0 {
		return nil, fmt.Errorf("%w: odd hex digit count", ErrFormat)
	}
	out := make([]byte, len(compact)/2)
	if _, err := hex.Decode(out, compact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return out, nil
}
