package websocket

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3
const (
	sampleKey    = "dGhlIHNhbXBsZSBub25jZQ=="
	sampleAccept = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
)

func TestAcceptKey(t *testing.T) {
	if got := AcceptKey(sampleKey); got != sampleAccept {
		t.Errorf("AcceptKey(%q) = %q, want %q", sampleKey, got, sampleAccept)
	}
}

func TestBuildUpgradeRequest(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		headers [][2]string
		want    string
	}{
		{
			name: "path_query_and_port",
			url:  "ws://localhost:8000/stream?query",
			want: "GET /stream?query HTTP/1.1\r\n" +
				"Host: localhost:8000\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
				"Sec-WebSocket-Version: 13\r\n" +
				"\r\n",
		},
		{
			name: "default_port_and_path",
			url:  "ws://example.com",
			want: "GET / HTTP/1.1\r\n" +
				"Host: example.com:80\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
				"Sec-WebSocket-Version: 13\r\n" +
				"\r\n",
		},
		{
			name: "tls_default_port",
			url:  "wss://example.com/chat",
			want: "GET /chat HTTP/1.1\r\n" +
				"Host: example.com:443\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
				"Sec-WebSocket-Version: 13\r\n" +
				"\r\n",
		},
		{
			name: "extra_headers_in_order",
			url:  "ws://example.com/",
			headers: [][2]string{
				{"Authorization", "Bearer abc"},
				{"X-Trace-Id", "123"},
			},
			want: "GET / HTTP/1.1\r\n" +
				"Host: example.com:80\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Key: " + sampleKey + "\r\n" +
				"Sec-WebSocket-Version: 13\r\n" +
				"Authorization: Bearer abc\r\n" +
				"X-Trace-Id: 123\r\n" +
				"\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			if err != nil {
				t.Fatalf("url.Parse() error = %v", err)
			}

			got := string(buildUpgradeRequest(u, sampleKey, tt.headers))
			if got != tt.want {
				t.Errorf("buildUpgradeRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpgradeDecoder(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantN    int
		wantErr  string
	}{
		{
			name: "accepted",
			response: "HTTP/1.1 101 Switching Protocols\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Accept: " + sampleAccept + "\r\n" +
				"\r\n",
			wantN: 129,
		},
		{
			name: "lowercase_header_name",
			response: "HTTP/1.1 101 Switching Protocols\r\n" +
				"sec-websocket-accept: " + sampleAccept + "\r\n" +
				"\r\n",
			wantN: 88,
		},
		{
			name:     "incomplete_response",
			response: "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websock",
		},
		{
			name:     "http_error_status",
			response: "HTTP/1.1 403 Forbidden\r\n\r\n",
			wantErr:  "403 Forbidden",
		},
		{
			name:     "missing_accept_header",
			response: "HTTP/1.1 101 Switching Protocols\r\n\r\n",
			wantErr:  "Sec-WebSocket-Accept",
		},
		{
			name: "malformed_base64_accept",
			response: "HTTP/1.1 101 Switching Protocols\r\n" +
				"Sec-WebSocket-Accept: not!base64!\r\n" +
				"\r\n",
			wantErr: "failed to decode",
		},
		{
			name: "mismatched_accept",
			response: "HTTP/1.1 101 Switching Protocols\r\n" +
				"Sec-WebSocket-Accept: BACScCJPNqyz+UBoqMH89VmURoA=\r\n" +
				"\r\n",
			wantErr: sampleAccept,
		},
		{
			name:     "garbage_instead_of_http",
			response: "ICE/1.0 hello\r\n\r\n",
			wantErr:  "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf Buffer
			_, _ = buf.Write([]byte(tt.response))

			n, err := newUpgradeDecoder(sampleKey).Decode(&buf)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Decode() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if n != tt.wantN {
				t.Errorf("Decode() n = %d, want %d", n, tt.wantN)
			}
		})
	}
}

// An incomplete response must be reported as "need more bytes" for any
// prefix, and consume the exact response length once it's all there.
func TestUpgradeDecoderIncremental(t *testing.T) {
	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Sec-WebSocket-Accept: " + sampleAccept + "\r\n" +
		"\r\n"
	trailing := "\x81\x02hi" // First frame right behind the handshake.

	d := newUpgradeDecoder(sampleKey)
	var buf Buffer

	for _, b := range []byte(response[:len(response)-1]) {
		_, _ = buf.Write([]byte{b})
		n, err := d.Decode(&buf)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if n != 0 {
			t.Fatalf("Decode() n = %d before the response was complete", n)
		}
	}

	_, _ = buf.Write([]byte(response[len(response)-1:]))
	_, _ = buf.Write([]byte(trailing))

	n, err := d.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if n != len(response) {
		t.Errorf("Decode() n = %d, want %d", n, len(response))
	}

	buf.Discard(n)
	if got := string(buf.Bytes()); got != trailing {
		t.Errorf("bytes after the response = %q, want %q", got, trailing)
	}
}

func TestVerifyClientRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr string
	}{
		{
			name: "valid",
			headers: map[string]string{
				"Upgrade":               "websocket",
				"Connection":            "Upgrade",
				"Sec-WebSocket-Version": "13",
				"Sec-WebSocket-Key":     sampleKey,
			},
			want: sampleAccept,
		},
		{
			name: "case_insensitive_values",
			headers: map[string]string{
				"Upgrade":               "WebSocket",
				"Connection":            "upgrade",
				"Sec-WebSocket-Version": "13",
				"Sec-WebSocket-Key":     sampleKey,
			},
			want: sampleAccept,
		},
		{
			name: "connection_with_proxy_tokens",
			headers: map[string]string{
				"Upgrade":               "websocket",
				"Connection":            "keep-alive, Upgrade",
				"Sec-WebSocket-Version": "13",
				"Sec-WebSocket-Key":     sampleKey,
			},
			want: sampleAccept,
		},
		{
			name: "missing_upgrade",
			headers: map[string]string{
				"Connection":            "Upgrade",
				"Sec-WebSocket-Version": "13",
				"Sec-WebSocket-Key":     sampleKey,
			},
			wantErr: "missing the Upgrade header",
		},
		{
			name: "wrong_upgrade",
			headers: map[string]string{
				"Upgrade":               "h2c",
				"Connection":            "Upgrade",
				"Sec-WebSocket-Version": "13",
				"Sec-WebSocket-Key":     sampleKey,
			},
			wantErr: `"Upgrade"`,
		},
		{
			name: "connection_without_upgrade_token",
			headers: map[string]string{
				"Upgrade":               "websocket",
				"Connection":            "keep-alive",
				"Sec-WebSocket-Version": "13",
				"Sec-WebSocket-Key":     sampleKey,
			},
			wantErr: `"Connection"`,
		},
		{
			name: "wrong_version",
			headers: map[string]string{
				"Upgrade":               "websocket",
				"Connection":            "Upgrade",
				"Sec-WebSocket-Version": "8",
				"Sec-WebSocket-Key":     sampleKey,
			},
			wantErr: `"Sec-WebSocket-Version"`,
		},
		{
			name: "missing_key",
			headers: map[string]string{
				"Upgrade":               "websocket",
				"Connection":            "Upgrade",
				"Sec-WebSocket-Version": "13",
			},
			wantErr: "missing the Sec-WebSocket-Key header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := http.Header{}
			for k, v := range tt.headers {
				hs.Set(k, v)
			}

			got, err := VerifyClientRequest(func(name string) (string, bool) {
				if len(hs.Values(name)) == 0 {
					return "", false
				}
				return hs.Get(name), true
			})

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("VerifyClientRequest() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyClientRequest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyClientRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}
