package frame

import (
	"encoding/binary"
	"errors"
)

const (
	// SyncByte marks the start of every binary frame.
	SyncByte byte = 0x55

	// HeaderLen is sync(1) + payload_len(2) + signal_id(2) + src_id(2).
	HeaderLen = 7
	// CRCLen is the trailing little-endian CRC16.
	CRCLen = 2
	// PayloadLen is the fixed signal payload size on the wire.
	PayloadLen = 4

	// MaxPayloadLen caps the advertised payload length during decode. A sync
	// byte inside line noise can be followed by an arbitrary length field;
	// without a cap the decoder would wait forever for a frame that never
	// completes. Frames claiming more than this are rejected like a bad
	// checksum so the stream resynchronizes one byte later.
	MaxPayloadLen = 512
)

var (
	ErrIncomplete      = errors.New("frame: incomplete frame")
	ErrChecksum        = errors.New("frame: checksum mismatch")
	ErrPayloadTooLarge = errors.New("frame: advertised payload too large")
)

// Signal is one discrete message to or from a firmware entity. Payload is
// exactly four bytes on the wire; Timestamp is set by the receiver, never
// transported.
type Signal struct {
	ID        uint16
	SrcID     uint16
	Payload   [PayloadLen]byte
	Timestamp uint32
}

// Result describes one Decode attempt over a buffer.
//
// Start is the offset of the sync byte the attempt anchored on. Consumed is
// the number of bytes from the front of the buffer that the caller may
// discard: the whole frame on success, the garbage prefix plus the rejected
// sync byte on ErrChecksum/ErrPayloadTooLarge, and only the garbage prefix on
// ErrIncomplete (the partial frame must be retained for the next attempt).
type Result struct {
	Signal   Signal
	Start    int
	Consumed int
}

// Encode serializes sig into a checksummed wire frame. The payload length is
// always PayloadLen; the CRC covers every byte after the sync byte.
func Encode(sig Signal) []byte {
	buf := make([]byte, HeaderLen+PayloadLen+CRCLen)
	buf[0] = SyncByte
	binary.LittleEndian.PutUint16(buf[1:3], PayloadLen)
	binary.LittleEndian.PutUint16(buf[3:5], sig.ID)
	binary.LittleEndian.PutUint16(buf[5:7], sig.SrcID)
	copy(buf[HeaderLen:], sig.Payload[:])

	crc := Checksum(buf[1 : HeaderLen+PayloadLen])
	binary.LittleEndian.PutUint16(buf[HeaderLen+PayloadLen:], crc)
	return buf
}

// Decode locates and validates one frame in buf.
//
// ErrIncomplete means more bytes may complete the frame; ErrChecksum and
// ErrPayloadTooLarge mean the putative frame is bad and the stream should
// resynchronize one byte past the sync position. Consumed semantics are
// documented on Result.
func Decode(buf []byte) (Result, error) {
	start := 0
	for start < len(buf) && buf[start] != SyncByte {
		start++
	}
	if start >= len(buf) {
		// No sync byte anywhere; everything seen so far is discardable.
		return Result{Start: start, Consumed: len(buf)}, ErrIncomplete
	}

	rest := buf[start:]
	if len(rest) < HeaderLen+CRCLen {
		return Result{Start: start, Consumed: start}, ErrIncomplete
	}

	payloadLen := int(binary.LittleEndian.Uint16(rest[1:3]))
	if payloadLen > MaxPayloadLen {
		return Result{Start: start, Consumed: start + 1}, ErrPayloadTooLarge
	}
	totalLen := HeaderLen + payloadLen + CRCLen
	if len(rest) < totalLen {
		return Result{Start: start, Consumed: start}, ErrIncomplete
	}

	stored := binary.LittleEndian.Uint16(rest[totalLen-CRCLen : totalLen])
	if Checksum(rest[1:totalLen-CRCLen]) != stored {
		return Result{Start: start, Consumed: start + 1}, ErrChecksum
	}

	sig := Signal{
		ID:    binary.LittleEndian.Uint16(rest[3:5]),
		SrcID: binary.LittleEndian.Uint16(rest[5:7]),
	}
	// Shorter payloads zero-pad, longer ones truncate.
	copy(sig.Payload[:], rest[HeaderLen:HeaderLen+payloadLen])

	return Result{Signal: sig, Start: start, Consumed: start + totalLen}, nil
}
