// Package wsframe encodes client-to-server WebSocket frames (RFC 6455).
package wsframe

import (
	"encoding/binary"
	"errors"
	"math/rand"
)

// Opcode identifies the frame type.
type Opcode byte

// Frame opcodes used by the client.
const (
	OpText   Opcode = 0x1
	OpBinary Opcode = 0x2
	OpClose  Opcode = 0x8
)

const (
	finBit  = 0x80
	maskBit = 0x80

	// Payload lengths up to maxShortLen fit in the 7-bit field.
	maxShortLen = 125
	// Payload lengths up to maxMediumLen use the 16-bit extended field.
	maxMediumLen = 65535

	lenMarker16 = 126
	lenMarker64 = 127
)

var (
	// ErrTruncated is returned when a buffer ends before the frame does.
	ErrTruncated = errors.New("wsframe: truncated frame")
	// ErrUnmasked is returned when decoding a client frame without the mask bit.
	ErrUnmasked = errors.New("wsframe: frame is not masked")
)

// Frame is one decoded WebSocket frame.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	default:
		return "unknown"
	}
}

// NewMaskKey returns a masking key. Keys only need to vary between frames,
// they carry no secrecy.
func NewMaskKey() [4]byte {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], rand.Uint32())
	return key
}

// HeaderLen returns the size of a masked frame header for a payload of n bytes.
func HeaderLen(n int) int {
	switch {
	case n <= maxShortLen:
		return 2 + 4
	case n <= maxMediumLen:
		return 2 + 2 + 4
	default:
		return 2 + 8 + 4
	}
}

// Encode builds a single, final, masked frame with a fresh masking key.
func Encode(op Opcode, payload []byte) []byte {
	return EncodeWithKey(op, payload, NewMaskKey())
}

// EncodeWithKey builds a single, final frame masked with key.
// The payload slice is not modified.
func EncodeWithKey(op Opcode, payload []byte, key [4]byte) []byte {
	n := len(payload)
	buf := make([]byte, HeaderLen(n), HeaderLen(n)+n)

	buf[0] = finBit | byte(op)
	pos := 2
	switch {
	case n <= maxShortLen:
		buf[1] = maskBit | byte(n)
	case n <= maxMediumLen:
		buf[1] = maskBit | lenMarker16
		binary.BigEndian.PutUint16(buf[2:4], uint16(n))
		pos = 4
	default:
		buf[1] = maskBit | lenMarker64
		binary.BigEndian.PutUint64(buf[2:10], uint64(n))
		pos = 10
	}
	copy(buf[pos:pos+4], key[:])

	buf = append(buf, payload...)
	Mask(key, buf[pos+4:])
	return buf
}

// Mask XORs p in place with key. Applying it twice restores p.
func Mask(key [4]byte, p []byte) {
	for i := range p {
		p[i] ^= key[i%4]
	}
}

// Decode parses the first frame in b and returns it with the number of bytes
// consumed. Masked payloads are returned unmasked. Decode is used for
// inspecting client frames, so requireMask rejects frames without a key.
func Decode(b []byte, requireMask bool) (Frame, int, error) {
	if len(b) < 2 {
		return Frame{}, 0, ErrTruncated
	}

	f := Frame{
		Fin:    b[0]&finBit != 0,
		Opcode: Opcode(b[0] & 0x0f),
		Masked: b[1]&maskBit != 0,
	}
	if requireMask && !f.Masked {
		return Frame{}, 0, ErrUnmasked
	}

	pos := 2
	n := uint64(b[1] & 0x7f)
	switch n {
	case lenMarker16:
		if len(b) < pos+2 {
			return Frame{}, 0, ErrTruncated
		}
		n = uint64(binary.BigEndian.Uint16(b[pos:]))
		pos += 2
	case lenMarker64:
		if len(b) < pos+8 {
			return Frame{}, 0, ErrTruncated
		}
		n = binary.BigEndian.Uint64(b[pos:])
		pos += 8
	}

	if f.Masked {
		if len(b) < pos+4 {
			return Frame{}, 0, ErrTruncated
		}
		copy(f.MaskKey[:], b[pos:pos+4])
		pos += 4
	}

	if uint64(len(b)-pos) < n {
		return Frame{}, 0, ErrTruncated
	}
	end := pos + int(n)

	f.Payload = make([]byte, n)
	copy(f.Payload, b[pos:end])
	if f.Masked {
		Mask(f.MaskKey, f.Payload)
	}

	return f, end, nil
}

// ClosePayload returns the body of a close frame carrying status code.
func ClosePayload(code uint16) []byte {
	p := make([]byte, 2)
	binary.BigEndian.PutUint16(p, code)
	return p
}
