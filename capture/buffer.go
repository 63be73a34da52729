package capture

// RingBuffer couples a RingSlice with an owning write cursor, tracking how
// much of the ring has been written so far.
type RingBuffer struct {
	slice  *RingSlice
	cursor RingCursor
}

// NewRingBuffer constructs a ring buffer of at least size bytes.
func NewRingBuffer(size int) (*RingBuffer, error) {
	slice, err := NewRingSlice(size)
	if err != nil {
		return nil, err
	}
	return &RingBuffer{
		slice:  slice,
		cursor: NewRingCursor(slice.Len()),
	}, nil
}

// Close releases the underlying ring mapping.
func (b *RingBuffer) Close() error {
	return b.slice.Close()
}

// Len returns the ring's logical size in bytes.
func (b *RingBuffer) Len() int {
	return b.slice.Len()
}

// Cursor returns the buffer's current write position.
func (b *RingBuffer) Cursor() RingCursor {
	return b.cursor
}

// Append passes writer a mutable slice of length maxSize starting at the
// current write cursor (contiguous by construction of the mirrored ring),
// advances the cursor by however many bytes writer reports having written,
// and returns that count, or writer's error, unchanged.
func (b *RingBuffer) Append(maxSize int, writer func([]byte) (int, error)) (int, error) {
	if maxSize > b.slice.Len() {
		panic("capture: append max_size exceeds ring length")
	}
	dst := b.slice.Slice(b.cursor.Index(), b.cursor.Index()+maxSize)
	written, err := writer(dst)
	if err == nil {
		b.cursor = b.cursor.Add(written)
	}
	return written, err
}

// Read returns an immutable contiguous view of count bytes starting at
// cursor, reinterpreted as signed 8-bit ADC samples. cursor must share this
// buffer's bound.
func (b *RingBuffer) Read(cursor RingCursor, count int) []int8 {
	if cursor.Bound() != b.slice.Len() {
		panic("capture: cursor bound does not match ring length")
	}
	if count > b.slice.Len() {
		panic("capture: read count exceeds ring length")
	}
	raw := b.slice.Slice(cursor.Index(), cursor.Index()+count)
	return castInt8(raw)
}

// castInt8 reinterprets a []byte as []int8, the Go equivalent of
// bytemuck::cast_slice for u8 -> i8 (same layout, same length, a pure sign
// reinterpretation) — Go has no unsafe-free way to alias the slice, so this
// allocates and copies rather than reinterpreting in place.
func castInt8(b []byte) []int8 {
	out := make([]int8, len(b))
	for i, v := range b {
		out[i] = int8(v)
	}
	return out
}
