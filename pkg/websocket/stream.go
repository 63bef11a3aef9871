package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
)

// NetworkStream is the transport a WebSocket connection runs over: a plain
// TCP connection, a TLS-wrapped one, or anything else byte-oriented. TLS
// and TCP are unified behind this single abstraction, so nothing above the
// handshake needs to know which one is in use.
type NetworkStream interface {
	net.Conn
}

// dialStream opens the transport for a WebSocket URL: a TCP connection for
// "ws", a TLS connection over TCP for "wss". The context governs dialing
// and the TLS handshake, not the established connection.
func dialStream(ctx context.Context, u *url.URL) (NetworkStream, error) {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), defaultPort(u.Scheme))
	}

	switch u.Scheme {
	case "ws":
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to WebSocket server: %w", err)
		}
		return conn, nil

	case "wss":
		d := tls.Dialer{Config: &tls.Config{MinVersion: tls.VersionTLS12}}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to WebSocket server over TLS: %w", err)
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("unexpected WebSocket URL scheme: %q", u.Scheme)
	}
}
