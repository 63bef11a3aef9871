package websocket

import (
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// Conn is the asynchronous flavor of a WebSocket connection: two goroutines
// own the receive and send halves of a [Framed], and the application talks
// to them through Go channels. Incoming control frames are handled
// internally (pings are answered, the closing handshake is tracked), and
// data messages are published on the channel that
// [Conn.IncomingMessages] returns.
type Conn struct {
	logger zerolog.Logger
	framed *Framed

	reader chan Message
	writer chan outgoingMessage

	// done is closed exactly once, when the connection is finished and the
	// transport has been closed.
	done     chan struct{}
	shutdown sync.Once

	// closeReceived changes in one direction only (false to true), and
	// only in the reading goroutine, so it needs no synchronization.
	closeReceived bool

	closeSent   bool
	closeSentMu sync.RWMutex
}

// outgoingMessage pairs a message with the channel that reports
// the result of writing it, to serialize concurrent senders.
type outgoingMessage struct {
	msg Message
	err chan<- error
}

// newConn wraps an established, already-upgraded [Framed]
// and starts the connection's two goroutines.
func newConn(logger zerolog.Logger, framed *Framed) *Conn {
	c := &Conn{
		logger: logger,
		framed: framed,
		reader: make(chan Message),
		writer: make(chan outgoingMessage),
		done:   make(chan struct{}),
	}

	go c.readMessages()
	go c.writeMessages()

	return c
}

// IncomingMessages returns the connection's channel that publishes text and
// binary [Message]s as they are received from the peer. The channel is
// closed when the connection finishes, cleanly or otherwise.
func (c *Conn) IncomingMessages() <-chan Message {
	return c.reader
}

// readMessages runs as a [Conn] goroutine. It owns the receive half of the
// [Framed]: it responds to control frames (whether or not they're
// interleaved with fragmented data messages), and publishes data messages
// to the connection's subscribers.
func (c *Conn) readMessages() {
	for c.readMessage() {
	}
	close(c.reader)
}

// readMessage receives and dispatches a single message,
// and reports whether the connection is still usable.
func (c *Conn) readMessage() bool {
	msg, ok, err := c.framed.Receive()
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to receive WebSocket message")
		c.sendCloseControlFrame(closeStatusForError(err), "protocol error")
		c.finish()
		return false
	}

	if !ok {
		c.logger.Debug().Msg("WebSocket connection closed")
		c.closeReceived = true
		c.markCloseSent()
		c.finish()
		return false
	}

	switch msg.Opcode {
	// "If an endpoint receives a Close frame and did not previously send
	// a Close frame, the endpoint MUST send a Close frame in response".
	case OpcodeClose:
		c.closeReceived = true
		status, reason := msg.CloseStatus()
		c.logger.Trace().Str("close_status", status.String()).Str("close_reason", reason).
			Msg("received WebSocket close control frame")
		c.sendCloseControlFrame(status, reason)
		c.finish()
		return false

	// "An endpoint MUST be capable of handling control
	// frames in the middle of a fragmented message".
	case OpcodePing:
		// Blocking on the result keeps msg.Data alive: the receive half
		// doesn't touch its buffers again until the pong is out.
		if err := <-c.send(PongMessage(msg.Data)); err != nil {
			c.logger.Error().Err(err).Msg("failed to send WebSocket pong control frame")
		}

	case OpcodePong:
		// No need to handle pong control frames beyond discarding them.

	default:
		// The message aliases the receive buffer, but the subscriber
		// consumes it at its own pace, so it gets a copy.
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)

		select {
		case c.reader <- Message{Opcode: msg.Opcode, Data: data}:
		case <-c.done:
			return false
		}
	}

	return true
}

// closeStatusForError picks the status code for the close
// frame that reports a terminal receive error to the peer.
func closeStatusForError(err error) StatusCode {
	switch {
	case errors.Is(err, ErrInvalidUTF8):
		return StatusInvalidData
	case errors.Is(err, ErrFrameTooLong):
		return StatusMessageTooBig
	default:
		return StatusProtocolError
	}
}

// writeMessages runs as a [Conn] goroutine. It owns the send half of the
// [Framed] and serializes concurrent senders, including interleaved
// control frames.
func (c *Conn) writeMessages() {
	for {
		select {
		case o := <-c.writer:
			o.err <- c.framed.Send(o.msg)
			close(o.err)
		case <-c.done:
			return
		}
	}
}

// send hands a message to the writing goroutine. The returned channel
// reports the result of the write; it receives exactly one value.
func (c *Conn) send(msg Message) <-chan error {
	err := make(chan error, 1)
	select {
	case c.writer <- outgoingMessage{msg: msg, err: err}:
	case <-c.done:
		err <- net.ErrClosed
		close(err)
	}
	return err
}

// SendTextMessage sends a UTF-8 text message to the peer.
//
// This is done asynchronously, to allow safe multiplexing of multiple
// concurrent calls, including interleaved control frames. Despite that,
// this function enables the caller to block and/or handle errors, with
// the returned channel.
func (c *Conn) SendTextMessage(data []byte) <-chan error {
	return c.send(Message{Opcode: OpcodeText, Data: data})
}

// SendBinaryMessage sends a binary message to the peer.
//
// This is done asynchronously, to allow safe multiplexing of multiple
// concurrent calls, including interleaved control frames. Despite that,
// this function enables the caller to block and/or handle errors, with
// the returned channel.
func (c *Conn) SendBinaryMessage(data []byte) <-chan error {
	return c.send(Message{Opcode: OpcodeBinary, Data: data})
}

// SendPing sends a ping control frame with an optional payload of up to
// 125 bytes. The peer is expected to answer with a pong, which the
// connection discards on arrival.
func (c *Conn) SendPing(data []byte) <-chan error {
	return c.send(PingMessage(data))
}

// sendCloseControlFrame either initiates or responds to a WebSocket
// closing handshake, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.
//
// This function is idempotent: when calling it multiple
// times, all calls after the initial one are no-ops.
func (c *Conn) sendCloseControlFrame(status StatusCode, reason string) {
	c.closeSentMu.Lock()
	if c.closeSent {
		c.closeSentMu.Unlock()
		if c.closeReceived {
			c.finish()
		}
		return
	}
	c.closeSent = true
	c.closeSentMu.Unlock()

	status = checkCloseStatus(status)

	l := c.logger.With().Str("close_status", status.String()).Str("close_reason", reason).Logger()
	if err := <-c.send(CloseMessage(status, reason)); err != nil {
		l.Error().Err(err).Msg("failed to send WebSocket close control frame")
	} else {
		l.Trace().Msg("sent WebSocket close control frame")
	}

	if c.closeReceived {
		c.finish()
	}
}

// finish closes the transport and releases the
// writing goroutine. Safe to call more than once.
func (c *Conn) finish() {
	c.shutdown.Do(func() {
		_ = c.framed.Close()
		close(c.done)
	})
}

func (c *Conn) markCloseSent() {
	c.closeSentMu.Lock()
	defer c.closeSentMu.Unlock()

	c.closeSent = true
}

func (c *Conn) isCloseSent() bool {
	c.closeSentMu.RLock()
	defer c.closeSentMu.RUnlock()

	return c.closeSent
}

// Close initiates a WebSocket closing handshake, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.1.2.
// The connection is fully closed once the peer responds
// in kind, which closes the [Conn.IncomingMessages] channel.
func (c *Conn) Close(s StatusCode) {
	c.sendCloseControlFrame(s, "")
}

// IsClosed reports whether both sides have completed the closing handshake.
func (c *Conn) IsClosed() bool {
	return c.closeReceived && c.isCloseSent()
}

// IsClosing reports whether either side has initiated the closing handshake.
func (c *Conn) IsClosing() bool {
	return c.closeReceived || c.isCloseSent()
}
