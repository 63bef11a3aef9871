package websocket

import (
	"encoding/binary"
	"math/bits"
	"math/rand/v2"
)

// Mask is the 32-bit masking key carried by client-to-server frames, as
// defined in https://datatracker.ietf.org/doc/html/rfc6455#section-5.3.
//
// The four key bytes on the wire map to the integer through a little-endian
// load/store. This is an internal convenience that keeps the word-at-a-time
// masking loop below consistent with the byte-at-a-time loop on every
// platform; all externally observable bytes match the RFC.
type Mask uint32

// NewMask returns a fresh masking key for an outgoing client frame.
//
// RFC 6455 asks for keys an observer can't predict, but they carry no
// secrets, so a fast non-cryptographic source is sufficient. It also keeps
// the encode path allocation-free.
func NewMask() Mask {
	return Mask(rand.Uint32())
}

// maskWord reads or writes Mask values and payload words in one fixed
// byte order, so masking is bit-identical on all platforms.
var maskWord = binary.LittleEndian

// MaskInPlace XORs every payload byte with the corresponding key byte,
// per https://datatracker.ietf.org/doc/html/rfc6455#section-5.3:
//
//	transformed-octet-i = original-octet-i XOR masking-key-octet-(i MOD 4)
//
// The transform is its own inverse: applying it twice restores the input.
// The buffer is processed a 32-bit word at a time from its start; the
// remaining tail of up to 3 bytes XORs the key one byte at a time, rotating
// the key so the
// next byte to apply is always in the low position. No allocation occurs.
func MaskInPlace(buf []byte, key Mask) {
	k := uint32(key)
	i := 0
	for ; i+4 <= len(buf); i += 4 {
		maskWord.PutUint32(buf[i:], maskWord.Uint32(buf[i:])^k)
	}
	for ; i < len(buf); i++ {
		buf[i] ^= byte(k)
		k = bits.RotateLeft32(k, -8)
	}
}

// MaskCopy writes the masked form of src into dst, which must be exactly
// the same length. It is the out-of-place flavor of [MaskInPlace], for
// callers that must not modify src. No allocation occurs.
func MaskCopy(dst, src []byte, key Mask) {
	if len(dst) != len(src) {
		panic("websocket: MaskCopy called with buffers of different lengths")
	}

	k := uint32(key)
	i := 0
	for ; i+4 <= len(src); i += 4 {
		maskWord.PutUint32(dst[i:], maskWord.Uint32(src[i:])^k)
	}
	for ; i < len(src); i++ {
		dst[i] = src[i] ^ byte(k)
		k = bits.RotateLeft32(k, -8)
	}
}
