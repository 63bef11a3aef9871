package websocket

import (
	"errors"
	"fmt"
	"math"
)

// Buffer growth hints used by the decoder. Growth is deliberately coarse:
// at least half a KiB at a time for headers, and payload-sized chunks capped
// at 1 GiB, so a message streaming in over many reads doesn't trigger a
// reallocation per read.
const (
	headerReserve     = 512
	maxPayloadReserve = 1 << 30
)

// MessageCodec encodes and decodes WebSocket [Message] values over a
// [Buffer]. It holds the reassembly state of an in-progress fragmented
// message between decode calls, so a single codec must be used for the
// entire life of a connection, and must not be shared between connections.
//
// Concurrent Decode calls are not safe. Encode only reads the codec's fixed
// masking policy and never touches the reassembly state, so one goroutine
// may encode while another decodes, each over its own buffer, as [Conn]
// does.
type MessageCodec struct {
	// maskOutgoing selects the masking policy of [MessageCodec.Encode]:
	// client-to-server frames must be masked, server-to-client frames
	// must not be.
	maskOutgoing bool

	// In-progress fragmented message, carried between decode calls.
	// partialData is reused across messages to avoid reallocating.
	partial     bool
	partialOp   Opcode
	partialData []byte
}

// NewClientCodec returns a codec for the client side
// of a connection. Outgoing frames are masked.
func NewClientCodec() *MessageCodec {
	return &MessageCodec{maskOutgoing: true}
}

// NewServerCodec returns a codec for the server side
// of a connection. Outgoing frames are not masked.
func NewServerCodec() *MessageCodec {
	return &MessageCodec{}
}

// Decode consumes one logical message from the front of buf.
//
// When buf doesn't yet hold a complete message, Decode reports ok == false,
// consumes nothing that it can't interpret yet, and reserves space in buf as
// a hint for how much more input to read. Errors are protocol violations and
// are terminal for the connection.
//
// Fragmented messages are reassembled across calls. A control frame that
// arrives in the middle of a fragmented message is emitted immediately,
// with the reassembly state preserved for the following calls.
//
// The returned message's Data aliases the codec's buffers
// and is valid until the next Decode call.
func (c *MessageCodec) Decode(buf *Buffer) (Message, bool, error) {
	for {
		h, n, err := ParseFrameHeader(buf.Bytes())
		if err != nil {
			return Message{}, false, err
		}
		if n == 0 {
			// Room for a frame header, plus reasonable extensions.
			buf.Reserve(headerReserve)
			return Message{}, false, nil
		}

		if h.PayloadLen > uint64(math.MaxInt-n) {
			return Message{}, false, fmt.Errorf("%w: %d bytes (%#x)", ErrFrameTooLong, h.PayloadLen, h.PayloadLen)
		}
		frameLen := n + int(h.PayloadLen)

		if frameLen > buf.Len() {
			// Room for the rest of the frame data, plus the next header.
			hint := min(frameLen, maxPayloadReserve) - buf.Len() + headerReserve
			buf.Reserve(max(hint, headerReserve))
			return Message{}, false, nil
		}

		payload := buf.Bytes()[n:frameLen]
		buf.Discard(frameLen)
		if h.Masked {
			MaskInPlace(payload, h.Key)
		}

		if c.partial {
			if h.Opcode == opcodeContinuation {
				c.partialData = append(c.partialData, payload...)
				if !h.Fin {
					continue
				}
				c.partial = false
				return emit(c.partialOp, c.partialData)
			}

			op, _ := opcodeFromByte(h.Opcode)
			if op.IsControl() {
				if !h.Fin {
					return Message{}, false, ErrControlFragmented
				}
				// Control frames may arrive in the middle of a fragmented
				// message; the reassembly state stays untouched.
				return emit(op, payload)
			}
			return Message{}, false, fmt.Errorf("%w, not %s", ErrContinuationExpected, op)
		}

		if h.Opcode == opcodeContinuation {
			return Message{}, false, ErrOrphanContinuation
		}

		op, _ := opcodeFromByte(h.Opcode)
		if op.IsControl() && !h.Fin {
			return Message{}, false, ErrControlFragmented
		}
		if h.Fin {
			return emit(op, payload)
		}

		// First fragment of a new message.
		c.partial = true
		c.partialOp = op
		c.partialData = append(c.partialData[:0], payload...)
	}
}

// emit validates the assembled payload against the
// message-level invariants and produces the message.
func emit(op Opcode, data []byte) (Message, bool, error) {
	msg, err := NewMessage(op, data)
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// DecodeEOF is called instead of [MessageCodec.Decode] once the transport
// has reached EOF. A clean close leaves nothing behind, so leftover bytes or
// an unfinished fragmented message mean the stream was truncated mid-frame.
func (c *MessageCodec) DecodeEOF(buf *Buffer) (Message, bool, error) {
	msg, ok, err := c.Decode(buf)
	if ok || err != nil {
		return msg, ok, err
	}

	if buf.Len() > 0 || c.partial {
		return Message{}, false, errors.New("stream ended in the middle of a frame")
	}
	return Message{}, false, nil
}

// Encode appends item to buf as a single, unfragmented frame, masked
// according to the codec's policy. Buffer space for the header and the
// payload is reserved in one call, so an encode into a buffer that has
// already reached its peak size allocates nothing.
func (c *MessageCodec) Encode(item Message, buf *Buffer) error {
	h := FrameHeader{
		Fin:        true,
		Opcode:     byte(item.Opcode),
		Masked:     c.maskOutgoing,
		PayloadLen: uint64(len(item.Data)),
	}
	if c.maskOutgoing {
		h.Key = NewMask()
	}

	h.EncodeTo(buf)

	if c.maskOutgoing {
		dst := buf.Writable()[:len(item.Data)]
		MaskCopy(dst, item.Data, h.Key)
		buf.Advance(len(item.Data))
		return nil
	}

	_, err := buf.Write(item.Data)
	return err
}
