package capture_test

import (
	"bytes"
	"testing"

	"github.com/oss-instruments/thunderscope/capture"
)

func TestRingSliceSimple(t *testing.T) {
	r, err := capture.NewRingSlice(8)
	if err != nil {
		t.Fatalf("NewRingSlice: %v", err)
	}
	defer r.Close()
	// NewRingSlice rounds up to at least two pages, so exercise it via the
	// smallest index range it's guaranteed to support: copy the 8-byte
	// pattern at the very start, within a single page.
	copy(r.Slice(0, 8), []byte{1, 2, 3, 4, 5, 6, 7, 8})

	cases := []struct {
		name     string
		got      []byte
		expected []byte
	}{
		{"0:4", r.Slice(0, 4), []byte{1, 2, 3, 4}},
		{"2:6", r.Slice(2, 6), []byte{3, 4, 5, 6}},
		{"4:8", r.Slice(4, 8), []byte{5, 6, 7, 8}},
	}
	for _, c := range cases {
		if !bytes.Equal(c.got, c.expected) {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.expected)
		}
	}
}

func TestRingSliceOverlapAtSeam(t *testing.T) {
	r, err := capture.NewRingSlice(4096)
	if err != nil {
		t.Fatalf("NewRingSlice: %v", err)
	}
	defer r.Close()
	if r.Len() != 4096 && r.Len() < 4096 {
		t.Fatalf("expected ring of at least 4096 bytes, got %d", r.Len())
	}
	L := r.Len()

	copy(r.Slice(L-6, L), []byte{1, 2, 3, 4, 5, 6})
	copy(r.Slice(0, 6), []byte{7, 8, 9, 10, 11, 12})

	if !bytes.Equal(r.Slice(L-6, L), []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("tail write did not stick")
	}
	if !bytes.Equal(r.Slice(0, 6), []byte{7, 8, 9, 10, 11, 12}) {
		t.Errorf("head write did not stick")
	}
	wrapped := r.Slice(L-6, L+6)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(wrapped, want) {
		t.Errorf("wrapped slice across seam = %v, want %v", wrapped, want)
	}
}

func TestRingCursorWrap(t *testing.T) {
	c := capture.NewRingCursor(128)
	if got := c.Add(10).Index(); got != 10 {
		t.Errorf("c+10 = %d, want 10", got)
	}
	if got := c.Add(10).Add(120).Index(); got != 2 {
		t.Errorf("c+10+120 = %d, want 2", got)
	}
	if got := c.Add(130).Index(); got != 2 {
		t.Errorf("c+130 = %d, want 2", got)
	}
	if got := c.Sub(10).Index(); got != 118 {
		t.Errorf("c-10 = %d, want 118", got)
	}
	if got := c.Sub(130).Index(); got != 126 {
		t.Errorf("c-130 = %d, want 126", got)
	}
	if !c.Add(0).Equal(c) {
		t.Errorf("c+0 should equal c")
	}
}

func TestRingCursorAddSubChain(t *testing.T) {
	c := capture.NewRingCursor(128)
	c = c.Add(10)
	if c.Index() != 10 {
		t.Fatalf("after += 10: %d, want 10", c.Index())
	}
	c = c.Sub(20)
	if c.Index() != 118 {
		t.Fatalf("after -= 20: %d, want 118", c.Index())
	}
}

func TestRingBufferAppendAndRead(t *testing.T) {
	rb, err := capture.NewRingBuffer(4096)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	defer rb.Close()

	payload := []byte{10, 20, 30, 40}
	n, err := rb.Append(len(payload), func(dst []byte) (int, error) {
		return copy(dst, payload), nil
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("Append wrote %d bytes, want %d", n, len(payload))
	}

	start := capture.NewRingCursor(rb.Len())
	samples := rb.Read(start, len(payload))
	for i, want := range payload {
		if samples[i] != int8(want) {
			t.Errorf("sample %d = %d, want %d", i, samples[i], int8(want))
		}
	}
	if rb.Cursor().Index() != len(payload) {
		t.Errorf("cursor after append = %d, want %d", rb.Cursor().Index(), len(payload))
	}
}

func TestRingBufferAppendPropagatesWriterError(t *testing.T) {
	rb, err := capture.NewRingBuffer(4096)
	if err != nil {
		t.Fatalf("NewRingBuffer: %v", err)
	}
	defer rb.Close()

	before := rb.Cursor()
	wantErr := errTest{}
	_, err = rb.Append(16, func(dst []byte) (int, error) {
		return 0, wantErr
	})
	if err != wantErr {
		t.Fatalf("Append error = %v, want %v", err, wantErr)
	}
	if !rb.Cursor().Equal(before) {
		t.Errorf("cursor should not advance when writer errors")
	}
}

type errTest struct{}

func (errTest) Error() string { return "test error" }
