package xdma_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oss-instruments/thunderscope/xdma"
)

func mustTouch(t *testing.T, path string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	// pre-extend so positional writes/reads at offset 0 don't require a
	// truncate-then-grow dance.
	if err := f.Truncate(4096); err != nil {
		t.Fatalf("truncating %s: %v", path, err)
	}
	f.Close()
}

func TestOpenNotFound(t *testing.T) {
	_, err := xdma.Open(filepath.Join(t.TempDir(), "xdma0"))
	if err != xdma.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenReadWriteUser(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "xdma0")
	mustTouch(t, base+"_control")
	mustTouch(t, base+"_user")
	mustTouch(t, base+"_c2h_0")

	dev, err := xdma.Open(base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := dev.WriteUser(0x10, want); err != nil {
		t.Fatalf("WriteUser: %v", err)
	}
	got := make([]byte, len(want))
	if err := dev.ReadUser(0x10, got); err != nil {
		t.Fatalf("ReadUser: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d: got 0x%02x, want 0x%02x", i, got[i], want[i])
		}
	}
}

func TestReadDMA(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "xdma0")
	mustTouch(t, base+"_control")
	mustTouch(t, base+"_user")

	c2hPath := base + "_c2h_0"
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := os.WriteFile(c2hPath, payload, 0o644); err != nil {
		t.Fatalf("writing c2h payload: %v", err)
	}

	dev, err := xdma.Open(base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dev.Close()

	buf := make([]byte, len(payload))
	if err := dev.ReadDMA(0, buf); err != nil {
		t.Fatalf("ReadDMA: %v", err)
	}
	for i := range payload {
		if buf[i] != payload[i] {
			t.Errorf("byte %d: got %d, want %d", i, buf[i], payload[i])
		}
	}
}
