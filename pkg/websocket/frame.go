package websocket

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame parsing/construction constants, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.2.
const (
	finBit     = 0x80
	rsvBits    = 0x70
	opcodeBits = 0x0f
	maskBit    = 0x80
	lenBits    = 0x7f

	len7Max  = 125 // Payload length of up to 125 bytes.
	len16Tag = 126 // Extended payload length of up to 64 KiB.
	len64Tag = 127 // Extended payload length of up to 8 EiB.

	// maxControlPayload is the maximum length of a control frame payload,
	// as defined in https://datatracker.ietf.org/doc/html/rfc6455#section-5.5.
	maxControlPayload = 125

	// maxHeaderLen is the serialized size of the largest possible header:
	// 2 fixed bytes, an 8-byte extended length, and a 4-byte masking key.
	maxHeaderLen = 14
)

// FrameHeader describes an individual frame within a WebSocket message at a
// low level, based on https://datatracker.ietf.org/doc/html/rfc6455#section-5.2.
//
// The frame header is a lower level detail of the WebSocket protocol. At the
// application level, use [Message] structs and the [MessageCodec].
type FrameHeader struct {
	// Fin indicates that this is the final fragment in a message.
	// The first fragment may also be the final fragment.
	Fin bool

	// Rsv holds the three reserved bits, packed as the upper three bits
	// of a byte with the top bit cleared. Extensions are not supported,
	// so [ParseFrameHeader] rejects nonzero values.
	Rsv byte

	// Opcode is the raw 4-bit frame opcode: 0 for continuation frames,
	// otherwise one of the [Opcode] values.
	Opcode byte

	// Masked defines whether the payload is masked with Key. All frames
	// sent from client to server have this set.
	Masked bool

	// Key is the masking key. Meaningful only when Masked is set.
	Key Mask

	// PayloadLen is the length of the payload data that follows the
	// header, in bytes. On the wire it occupies 7 bits, or 7+16 bits, or
	// 7+64 bits; the minimal form must be used, and the most significant
	// bit of a 64-bit length must be zero.
	PayloadLen uint64
}

// HeaderLen returns the total serialized length of the frame header:
// between 2 and 14 bytes, depending on the payload length class and
// the presence of a masking key.
func (h FrameHeader) HeaderLen() int {
	n := 2 + payloadLenBytes(h.PayloadLen)
	if h.Masked {
		n += 4
	}
	return n
}

// payloadLenBytes returns the number of extended payload length bytes in
// the canonical (minimal) encoding of n.
func payloadLenBytes(n uint64) int {
	switch {
	case n <= len7Max:
		return 0
	case n <= math.MaxUint16:
		return 2
	default:
		return 8
	}
}

// ParseFrameHeader parses a frame header from the front of buf.
//
// It returns the header and the number of bytes it occupies. When buf is too
// short to hold the complete header, it returns n == 0 and no error: the
// caller should obtain more bytes and retry. Protocol violations (nonzero
// reserved bits, unsupported opcodes, oversized control frames, non-minimal
// or oversized payload lengths) are terminal errors. The FIN bit is not
// checked here: fragmented control frames are rejected by
// [MessageCodec.Decode].
func ParseFrameHeader(buf []byte) (h FrameHeader, n int, err error) {
	if len(buf) < 2 {
		return FrameHeader{}, 0, nil
	}

	h.Fin = buf[0]&finBit != 0
	h.Rsv = buf[0] & rsvBits
	h.Opcode = buf[0] & opcodeBits
	h.Masked = buf[1]&maskBit != 0

	if h.Rsv != 0 {
		return FrameHeader{}, 0, fmt.Errorf("%w: RSV = %#x", ErrReservedBits, h.Rsv>>4)
	}
	if _, ok := opcodeFromByte(h.Opcode); !ok && h.Opcode != opcodeContinuation {
		return FrameHeader{}, 0, fmt.Errorf("%w: %d", ErrOpcodeNotSupported, h.Opcode)
	}

	n = 2
	switch l := buf[1] & lenBits; l {
	case len16Tag:
		if len(buf) < 4 {
			return FrameHeader{}, 0, nil
		}
		h.PayloadLen = uint64(binary.BigEndian.Uint16(buf[2:4]))
		if h.PayloadLen <= len7Max {
			return FrameHeader{}, 0, fmt.Errorf(
				"%w: length %d should not be represented using 16 bits", ErrLengthNotCanonical, h.PayloadLen)
		}
		n += 2
	case len64Tag:
		if len(buf) < 10 {
			return FrameHeader{}, 0, nil
		}
		h.PayloadLen = binary.BigEndian.Uint64(buf[2:10])
		if h.PayloadLen >= 1<<63 {
			return FrameHeader{}, 0, fmt.Errorf("%w: %d bytes (%#x)", ErrFrameTooLong, h.PayloadLen, h.PayloadLen)
		}
		if h.PayloadLen <= math.MaxUint16 {
			return FrameHeader{}, 0, fmt.Errorf(
				"%w: length %d should not be represented using 64 bits", ErrLengthNotCanonical, h.PayloadLen)
		}
		n += 8
	default:
		h.PayloadLen = uint64(l)
	}

	if Opcode(h.Opcode).IsControl() && h.PayloadLen > maxControlPayload {
		return FrameHeader{}, 0, fmt.Errorf("%w: %d bytes", ErrControlTooLong, h.PayloadLen)
	}

	if h.Masked {
		if len(buf) < n+4 {
			return FrameHeader{}, 0, nil
		}
		h.Key = Mask(maskWord.Uint32(buf[n:]))
		n += 4
	}

	return h, n, nil
}

// Encode serializes the header into dst, which must be at least
// [FrameHeader.HeaderLen] bytes long, and returns the number of bytes
// written. The payload length is always written in its canonical
// (minimal) form.
func (h FrameHeader) Encode(dst []byte) int {
	b0 := h.Rsv | h.Opcode
	if h.Fin {
		b0 |= finBit
	}
	dst[0] = b0

	var mask byte
	if h.Masked {
		mask = maskBit
	}

	n := 2
	switch payloadLenBytes(h.PayloadLen) {
	case 0:
		dst[1] = mask | byte(h.PayloadLen)
	case 2:
		dst[1] = mask | len16Tag
		binary.BigEndian.PutUint16(dst[2:4], uint16(h.PayloadLen))
		n += 2
	default:
		dst[1] = mask | len64Tag
		binary.BigEndian.PutUint64(dst[2:10], h.PayloadLen)
		n += 8
	}

	if h.Masked {
		maskWord.PutUint32(dst[n:], uint32(h.Key))
		n += 4
	}

	return n
}

// EncodeTo serializes the header into buf, reserving room for the header
// and the payload that follows it in a single call, so that writing the
// payload afterwards cannot trigger a second growth.
func (h FrameHeader) EncodeTo(buf *Buffer) {
	n := h.HeaderLen()
	buf.Reserve(n + int(h.PayloadLen))
	buf.Advance(h.Encode(buf.Writable()[:n]))
}
