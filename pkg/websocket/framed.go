package websocket

import (
	"errors"
	"fmt"
	"io"
)

// initialReadReserve is the first reservation made for an empty read
// buffer, to amortize the early growth of a fresh connection.
const initialReadReserve = 8 * 1024

// Framed owns a transport, a [MessageCodec], and the two grow-only buffers
// the codec works over. It exposes blocking send and receive; [Conn] builds
// the channel-based asynchronous flavor on top of it.
//
// A Framed must not be shared between goroutines. Callers that need
// concurrent send and receive must split responsibility so that one
// goroutine sends and one receives, as [Conn] does.
type Framed struct {
	stream io.ReadWriter
	codec  *MessageCodec

	readBuf  Buffer
	writeBuf Buffer
}

// NewFramed wraps an established transport with a codec. For connections
// made by [ClientBuilder] or [Upgrade] this is done for you.
func NewFramed(stream io.ReadWriter, codec *MessageCodec) *Framed {
	return &Framed{stream: stream, codec: codec}
}

// Send encodes item into the write buffer and writes the whole buffer to
// the transport. The buffer is truncated, not released, between calls, so
// sending a message no larger than the largest sent so far allocates
// nothing.
func (f *Framed) Send(item Message) error {
	f.writeBuf.Reset()
	if err := f.codec.Encode(item, &f.writeBuf); err != nil {
		return err
	}

	if _, err := f.stream.Write(f.writeBuf.Bytes()); err != nil {
		return fmt.Errorf("failed to write WebSocket frame: %w", err)
	}
	return nil
}

// Receive reads from the transport until the codec can produce one complete
// message, and returns it. The reported ok is false with a nil error when
// the transport reached EOF cleanly between messages.
//
// The returned message's Data is valid until the next Receive call.
func (f *Framed) Receive() (Message, bool, error) {
	for {
		if f.readBuf.Cap() == 0 {
			f.readBuf.Reserve(initialReadReserve)
		} else {
			msg, ok, err := f.codec.Decode(&f.readBuf)
			if err != nil || ok {
				return msg, ok, err
			}

			// Decode reserved a growth hint; make sure there is room for
			// at least one byte regardless.
			f.readBuf.Reserve(1)
		}

		n, err := f.stream.Read(f.readBuf.Writable())
		f.readBuf.Advance(n)
		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) {
				return f.codec.DecodeEOF(&f.readBuf)
			}
			if n == 0 {
				return Message{}, false, fmt.Errorf("failed to read WebSocket frame: %w", err)
			}
			// Process the bytes we did get; the error will resurface on
			// the next read.
		}
	}
}

// Close closes the underlying transport, if it supports closing.
func (f *Framed) Close() error {
	if c, ok := f.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
