package websocket

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/rs/zerolog"
)

// ClientBuilder establishes WebSocket connections
// to "ws://..." and "wss://..." URLs.
type ClientBuilder struct {
	url     *url.URL
	headers [][2]string

	// For unit-testing only.
	keySource io.Reader
}

// NewClientBuilder returns a builder that connects to the given WebSocket
// URL. The URL is parsed and validated here, so a malformed URL fails fast,
// before any connection attempt.
func NewClientBuilder(rawURL string) (*ClientBuilder, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WebSocket URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// Do nothing.
	default:
		return nil, fmt.Errorf("unexpected WebSocket URL scheme: %q", u.Scheme)
	}

	return &ClientBuilder{url: u, keySource: rand.Reader}, nil
}

// AddHeader adds an extra HTTP header to the handshake request. Headers are
// sent after the required WebSocket ones, in the order they were added.
func (b *ClientBuilder) AddHeader(name, value string) {
	b.headers = append(b.headers, [2]string{name, value})
}

// ConnectOn takes over an already established stream and performs the
// opening handshake on it: it writes the HTTP upgrade request, waits for
// the server's 101 response, verifies the Sec-WebSocket-Accept token, and
// hands the stream off to a [Framed] with a client codec.
//
// This method assumes that the TLS session has already been established,
// if needed. Use [ClientBuilder.Connect] to let the builder open the
// transport itself.
func (b *ClientBuilder) ConnectOn(stream io.ReadWriter) (*Framed, error) {
	key, err := generateKey(b.keySource)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key for WebSocket handshake: %w", err)
	}

	if _, err := stream.Write(buildUpgradeRequest(b.url, key, b.headers)); err != nil {
		return nil, fmt.Errorf("failed to send WebSocket handshake request: %w", err)
	}

	// The response may be followed by the first frames of the connection;
	// reading into the Framed's own buffer carries them over.
	f := NewFramed(stream, NewClientCodec())
	dec := newUpgradeDecoder(key)

	for {
		n, err := dec.Decode(&f.readBuf)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			f.readBuf.Discard(n)
			return f, nil
		}

		f.readBuf.Reserve(1)
		n, err = stream.Read(f.readBuf.Writable())
		f.readBuf.Advance(n)
		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) {
				return nil, errors.New("no HTTP Upgrade response")
			}
			if n == 0 {
				return nil, fmt.Errorf("failed to read WebSocket handshake response: %w", err)
			}
		}
	}
}

// Connect opens the transport for the builder's URL (TCP for "ws", TLS for
// "wss"), performs the opening handshake on it, and returns an asynchronous
// [Conn] that reads and writes through Go channels. The context governs
// connection establishment and supplies the connection's logger via
// [zerolog.Ctx]; it does not bound the connection's lifetime.
func (b *ClientBuilder) Connect(ctx context.Context) (*Conn, error) {
	stream, err := dialStream(ctx, b.url)
	if err != nil {
		return nil, err
	}

	f, err := b.ConnectOn(stream)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}

	l := zerolog.Ctx(ctx).With().Str("url", b.url.Redacted()).Logger()
	l.Debug().Msg("WebSocket connection initialized")
	return newConn(l, f), nil
}

// ConnectSync is like [ClientBuilder.Connect], but returns the blocking
// [Framed] wrapper instead of spawning the asynchronous goroutines.
func (b *ClientBuilder) ConnectSync(ctx context.Context) (*Framed, error) {
	stream, err := dialStream(ctx, b.url)
	if err != nil {
		return nil, err
	}

	f, err := b.ConnectOn(stream)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}
	return f, nil
}
