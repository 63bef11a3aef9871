package websocket

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Message is a text string, a block of binary data, or a WebSocket control
// frame, as defined in https://datatracker.ietf.org/doc/html/rfc6455#section-5.6.
//
// Messages produced by [MessageCodec.Decode] and [Framed.Receive] alias the
// codec's internal buffers: their Data is valid until the next decode or
// receive call. Copy it if it must outlive that.
type Message struct {
	Opcode Opcode
	Data   []byte
}

// NewMessage creates a message after validating its construction invariants:
// text messages must be valid UTF-8, control messages must not exceed 125
// bytes, and close messages must carry either nothing or a two-byte status
// code followed by a UTF-8 reason.
func NewMessage(opcode Opcode, data []byte) (Message, error) {
	if _, ok := opcodeFromByte(byte(opcode)); !ok {
		return Message{}, fmt.Errorf("%w: %d", ErrOpcodeNotSupported, byte(opcode))
	}

	if opcode.IsControl() && len(data) > maxControlPayload {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrControlTooLong, len(data))
	}

	switch opcode {
	case OpcodeText:
		if !utf8.Valid(data) {
			return Message{}, ErrInvalidUTF8
		}
	case OpcodeClose:
		if err := checkClosePayload(data); err != nil {
			return Message{}, err
		}
	}

	return Message{Opcode: opcode, Data: data}, nil
}

// checkClosePayload validates the payload of an incoming close frame: empty
// is fine, a lone byte can't carry the two-byte status code, and any reason
// text after the status code must be valid UTF-8.
func checkClosePayload(data []byte) error {
	switch {
	case len(data) == 1:
		return fmt.Errorf("%w: 1 byte can't hold a status code", ErrInvalidClosePayload)
	case len(data) > 2 && !utf8.Valid(data[2:]):
		return fmt.Errorf("close reason: %w", ErrInvalidUTF8)
	default:
		return nil
	}
}

// TextMessage creates a text message. The caller is responsible
// for the string being valid UTF-8, which Go source literals are.
func TextMessage(data string) Message {
	return Message{Opcode: OpcodeText, Data: []byte(data)}
}

// BinaryMessage creates a binary message.
func BinaryMessage(data []byte) Message {
	return Message{Opcode: OpcodeBinary, Data: data}
}

// PingMessage creates a ping message requesting a pong response.
// The payload must not exceed 125 bytes.
func PingMessage(data []byte) Message {
	return Message{Opcode: OpcodePing, Data: data}
}

// PongMessage creates a response to a ping message.
func PongMessage(data []byte) Message {
	return Message{Opcode: OpcodePong, Data: data}
}

// CloseMessage creates a message that indicates the connection is about to
// be closed, with a status code and an optional reason. Reasons longer than
// 123 bytes are truncated to keep the frame within the control frame limit.
func CloseMessage(status StatusCode, reason string) Message {
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}

	data := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(data[:2], uint16(status))
	copy(data[2:], reason)

	return Message{Opcode: OpcodeClose, Data: data}
}

// Text returns the message payload as a string,
// and whether this is a text message at all.
func (m Message) Text() (string, bool) {
	if !m.Opcode.IsText() {
		return "", false
	}
	return string(m.Data), true
}

// CloseStatus extracts the status code and the optional UTF-8 reason from a
// close message. An empty payload means the peer sent no status code, which
// RFC 6455 tells receivers to treat as a normal closure.
func (m Message) CloseStatus() (StatusCode, string) {
	if m.Opcode != OpcodeClose || len(m.Data) < 2 {
		return StatusNormalClosure, ""
	}
	return StatusCode(binary.BigEndian.Uint16(m.Data[:2])), string(m.Data[2:])
}
