/*Package capture implements the zero-copy ring buffer used to stream ADC
samples off the device: a double-mapped (mirrored) virtual memory region
that makes every contiguous wraparound slice a plain Go slice, a RingCursor
doing modular index arithmetic over it, and a RingBuffer tying the two
together with an owning write cursor.
*/
package capture

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrVmap is returned when the ring mirror-mapping primitive fails at
// construction.
var ErrVmap = errors.New("capture: ring mirror mapping failed")

// RingSlice is a region of length Len(), mapped twice consecutively in the
// process address space via memfd_create + two mmap calls, so that the byte
// at offset Len()+k aliases the byte at offset k for 0 <= k < Len(). Any
// half-open interval [i, j) with 0 <= i < Len() and j-i <= Len() is
// therefore a contiguous Go slice, even when it wraps past the end of the
// underlying buffer.
type RingSlice struct {
	mirror []byte // length 2*size, mmap'd twice over the same pages
	size   int
}

// allocationGranularity is the minimum unit ring sizes round up to. Linux
// has no equivalent of Windows' 64 KiB allocation granularity distinct from
// its page size, so this is just the page size.
func allocationGranularity() int {
	return unix.Getpagesize()
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	rem := n % multiple
	if rem == 0 {
		return n
	}
	return n + (multiple - rem)
}

// NewRingSlice maps a mirrored ring of at least hint bytes, rounded up to
// the allocation granularity and to at least two pages.
func NewRingSlice(hint int) (*RingSlice, error) {
	gran := allocationGranularity()
	size := roundUp(hint, gran)
	if size < 2*gran {
		size = 2 * gran
	}

	fd, err := unix.MemfdCreate("thunderscope-ring", 0)
	if err != nil {
		return nil, errors.Wrap(ErrVmap, err.Error())
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, errors.Wrap(ErrVmap, err.Error())
	}

	// Reserve a contiguous region of 2*size first so the two real mappings
	// land adjacently, then overwrite each half with a MAP_FIXED mapping of
	// the same backing pages.
	mirror, err := unix.Mmap(-1, 0, 2*size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.Wrap(ErrVmap, err.Error())
	}

	if err := mmapFixed(mirror[:size], fd, size); err != nil {
		unix.Munmap(mirror)
		return nil, errors.Wrap(ErrVmap, err.Error())
	}
	if err := mmapFixed(mirror[size:2*size], fd, size); err != nil {
		unix.Munmap(mirror)
		return nil, errors.Wrap(ErrVmap, err.Error())
	}

	return &RingSlice{mirror: mirror, size: size}, nil
}

func mmapFixed(region []byte, fd int, size int) error {
	addr := uintptr(unsafe.Pointer(&region[0]))
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(size),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// Close unmaps both mirror halves.
func (r *RingSlice) Close() error {
	if r.mirror == nil {
		return nil
	}
	err := unix.Munmap(r.mirror)
	r.mirror = nil
	return err
}

// Len returns the ring's logical size in bytes.
func (r *RingSlice) Len() int {
	return r.size
}

// Slice returns a contiguous view of [i, j) mod Len(). Requires 0 <= i <
// Len() and 0 <= j-i <= Len(); panics otherwise, matching the Rust
// original's assertion-on-misuse policy for ring indexing.
func (r *RingSlice) Slice(i, j int) []byte {
	if i < 0 || i >= r.size {
		panic("capture: RingSlice index start out of range")
	}
	n := j - i
	if n < 0 || n > r.size {
		panic("capture: RingSlice index length out of range")
	}
	return r.mirror[i : i+n]
}

// From returns a contiguous view of [i, i+Len()), i.e. the whole ring
// starting at i, wrapping once through the mirror.
func (r *RingSlice) From(i int) []byte {
	return r.Slice(i, i+r.size)
}
