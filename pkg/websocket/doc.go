// Package websocket is a lightweight yet robust implementation of the
// WebSocket protocol (RFC 6455), usable by both clients and servers.
//
// It is optimized for receiving a high volume of small-to-medium messages
// over a long period. A key feature is that it makes no memory allocations
// once the connection is set up and the internal buffers have grown to
// accommodate the largest message seen so far; it reuses a single pair of
// buffers per connection.
//
// The package is layered, lowest first:
//  1. [FrameHeader] and [Mask]: bit-exact frame header parsing and
//     serialization, and the client-to-server payload masking transform
//  2. [MessageCodec]: streaming encode/decode of logical messages over a
//     [Buffer], including defragmentation, masking, and UTF-8 validation
//  3. [Framed]: a transport plus a codec plus two reusable byte buffers,
//     with blocking send/receive
//  4. [Conn]: continuous asynchronous reading and writing on top of
//     [Framed], using Go channels, with automatic ping/pong responses and
//     closing handshake bookkeeping
//  5. [ClientBuilder] and [Upgrade]: the opening handshake, on the client
//     and server side respectively
//
// Note: WebSocket [extensions] and [subprotocols] are not supported.
// Frames with nonzero reserved bits fail the connection.
//
// [extensions]: https://www.iana.org/assignments/websocket/websocket.xhtml#extension-name
// [subprotocols]: https://www.iana.org/assignments/websocket/websocket.xhtml#subprotocol-name
package websocket
