package websocket

import "errors"

// Protocol violations and framing errors. All of them are terminal for the
// connection: the codec makes no attempt to resynchronize, and the caller is
// expected to close the transport. Errors returned by this package wrap one
// of these sentinels where applicable, so callers can match with
// [errors.Is] while the message carries the human-readable specifics.
var (
	// ErrReservedBits indicates a frame with nonzero RSV bits. Extensions
	// are not supported, so any nonzero value fails the connection.
	ErrReservedBits = errors.New("reserved bits not supported")

	// ErrOpcodeNotSupported indicates a frame with a reserved or
	// unrecognized opcode (3-7, 11-15).
	ErrOpcodeNotSupported = errors.New("opcode not supported")

	// ErrControlTooLong indicates a control frame with a payload longer
	// than 125 bytes.
	ErrControlTooLong = errors.New("control frame too long")

	// ErrControlFragmented indicates a control frame with the FIN bit clear.
	ErrControlFragmented = errors.New("control frames must not be fragmented")

	// ErrFrameTooLong indicates a frame whose declared payload length has
	// the reserved top bit set, or cannot be buffered in this process's
	// address space.
	ErrFrameTooLong = errors.New("frame is too long")

	// ErrLengthNotCanonical indicates a frame whose payload length was not
	// encoded in the minimal number of bytes required by RFC 6455.
	ErrLengthNotCanonical = errors.New("payload length not minimally encoded")

	// ErrOrphanContinuation indicates a continuation frame that arrived
	// with no fragmented message in progress.
	ErrOrphanContinuation = errors.New("continuation without preceding first frame")

	// ErrContinuationExpected indicates a text or binary frame that arrived
	// in the middle of another fragmented message.
	ErrContinuationExpected = errors.New("continuation frame must have continuation opcode")

	// ErrInvalidUTF8 indicates a text message, or a close frame reason,
	// whose bytes are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 text")

	// ErrInvalidClosePayload indicates a close frame whose payload is too
	// short to carry the two-byte status code.
	ErrInvalidClosePayload = errors.New("invalid close frame payload")
)
