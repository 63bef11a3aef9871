package websocket

import (
	"fmt"
	"net/http"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
)

// Upgrade validates a client's WebSocket upgrade request, takes over the
// underlying TCP connection, completes the opening handshake with a
// "101 Switching Protocols" response, and returns a blocking [Framed]
// with a server-side codec.
//
// If the request is not a valid WebSocket upgrade, the response has not
// been touched yet: the caller should reply with an HTTP error. After a
// successful return the [http.ResponseWriter] must not be used.
//
// Use [Handler] for the common case of serving
// each connection with its own [Conn].
func Upgrade(w http.ResponseWriter, r *http.Request) (*Framed, error) {
	if r.Method != http.MethodGet {
		return nil, fmt.Errorf("WebSocket upgrade request method: got %q, want %q", r.Method, http.MethodGet)
	}

	accept, err := VerifyClientRequest(func(name string) (string, bool) {
		if len(r.Header.Values(name)) == 0 {
			return "", false
		}
		return r.Header.Get(name), true
	})
	if err != nil {
		return nil, err
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		return nil, fmt.Errorf("HTTP connection doesn't support hijacking: %T", w)
	}

	conn, bufrw, err := hj.Hijack()
	if err != nil {
		return nil, fmt.Errorf("failed to hijack HTTP connection: %w", err)
	}

	// The response is written to the raw connection: the HTTP server's
	// machinery is out of the picture once the connection is hijacked.
	fmt.Fprintf(bufrw, "HTTP/1.1 101 Switching Protocols\r\n"+
		"Upgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: %s\r\n\r\n", accept)
	if err := bufrw.Flush(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send WebSocket handshake response: %w", err)
	}

	f := NewFramed(conn, NewServerCodec())

	// Frames the client sent right behind its handshake request may be
	// sitting in the server's buffered reader; carry them over.
	if n := bufrw.Reader.Buffered(); n > 0 {
		head, err := bufrw.Reader.Peek(n)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to drain buffered WebSocket frames: %w", err)
		}
		_, _ = f.readBuf.Write(head)
	}

	return f, nil
}

// Handler adapts a per-connection WebSocket handler into an
// [http.HandlerFunc]. Each accepted connection is upgraded, given a unique
// ID for log correlation, and served with an asynchronous [Conn]; the
// handler returns when it is done with the connection.
func Handler(handler func(*Conn)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context()).With().Str("conn_id", shortuuid.New()).Logger()

		f, err := Upgrade(w, r)
		if err != nil {
			l.Warn().Err(err).Msg("rejected WebSocket upgrade request")
			http.Error(w, "bad WebSocket upgrade request", http.StatusBadRequest)
			return
		}

		l.Debug().Msg("accepted WebSocket connection")
		handler(newConn(l, f))
	}
}
