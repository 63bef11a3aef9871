package websocket

// Buffer is a grow-only byte buffer with an explicit reserve-then-fill
// contract. It is the working memory of [MessageCodec] and [Framed]: a
// decoder that needs more input reserves writable space, the caller reads
// from the transport directly into that space, and the decoder then
// consumes a prefix of the readable region.
//
// The buffer never shrinks. Reserving may compact the consumed prefix or
// reallocate, so slices previously returned by [Buffer.Bytes] or
// [Buffer.Writable] are invalidated by [Buffer.Reserve] and
// [Buffer.Write].
//
// The zero value is an empty buffer ready for use.
type Buffer struct {
	// data[off:] is the readable region; data[len(data):cap(data)]
	// is the writable region.
	data []byte
	off  int
}

// Len returns the number of readable bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}

// Cap returns the total capacity of the underlying array.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Bytes returns the readable region. The slice is valid until the
// next call to [Buffer.Reserve] or [Buffer.Write].
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Writable returns the spare capacity between the readable region and the
// end of the underlying array, for the caller to fill (typically by reading
// from a transport). Call [Buffer.Advance] afterwards with the number of
// bytes actually written.
func (b *Buffer) Writable() []byte {
	return b.data[len(b.data):cap(b.data)]
}

// Advance extends the readable region by n bytes previously
// written into [Buffer.Writable].
func (b *Buffer) Advance(n int) {
	b.data = b.data[:len(b.data)+n]
}

// Discard consumes n bytes from the front of the readable region without
// copying. The bytes stay in place until the buffer is next reserved,
// written or advanced into; consuming the whole readable region rewinds the
// buffer to the start of its array, so the next write reuses that space.
func (b *Buffer) Discard(n int) {
	b.off += n
	if b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
	}
}

// Reset discards all readable bytes, keeping the underlying array.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.off = 0
}

// Reserve ensures there is room for at least n writable bytes. If the spare
// capacity at the end of the array is too small, the consumed prefix is
// compacted away; if that still isn't enough, the array is reallocated with
// at least double the previous capacity, so repeated small reservations
// are amortized. Once capacity covers the peak frame size, subsequent
// reservations allocate nothing.
func (b *Buffer) Reserve(n int) {
	if cap(b.data)-len(b.data) >= n {
		return
	}

	if cap(b.data)-b.Len() >= n {
		// Compacting the consumed prefix is enough.
		m := copy(b.data[:cap(b.data)], b.data[b.off:])
		b.data = b.data[:m]
		b.off = 0
		return
	}

	newCap := b.Len() + n
	if twice := 2 * cap(b.data); newCap < twice {
		newCap = twice
	}
	data := make([]byte, b.Len(), newCap)
	copy(data, b.data[b.off:])
	b.data = data
	b.off = 0
}

// Write appends p to the readable region, reserving space as needed.
// It implements [io.Writer] and never returns an error.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Reserve(len(p))
	b.data = append(b.data, p...)
	return len(p), nil
}
