package device

import (
	"log"

	"github.com/oss-instruments/thunderscope/regs"
)

// Streamer reads newly-available bytes out of the device's circular
// memory. It satisfies io.Reader: each Read call returns as much of the
// requested buffer as is currently backed by data the data mover has
// already written, which may be less than the full buffer (possibly
// zero) if the device hasn't produced enough new pages yet. Callers that
// want to busy-wait for more data do so in their own outer loop, paced by
// whatever rate limiter is appropriate to their use (see sampler.Sampler).
type Streamer struct {
	device *Device
	cursor *int64
}

// Read implements io.Reader.
func (s *Streamer) Read(buffer []byte) (int, error) {
	written := 0
	for len(buffer) > 0 {
		status, err := s.device.readStatus()
		if err != nil {
			return written, err
		}
		if status.Fatal() {
			log.Printf("device: data mover failure, power cycle the device (overflow by %d cycles)", status.OverflowCycles())
			panic("device: data mover failure, power cycle the device")
		}

		nextCursor := int64(status.PagesMoved()) << regs.PageBits

		if s.cursor == nil {
			// first ever read: only latch the current position.
			cursor := nextCursor
			s.cursor = &cursor
			return written, nil
		}
		prevCursor := *s.cursor

		var length int
		if nextCursor < prevCursor {
			// wraparound: only as much as remains before the end of memory.
			length = minInt(len(buffer), regs.MemorySize-int(prevCursor))
		} else {
			length = minInt(len(buffer), int(nextCursor-prevCursor))
		}

		if length <= 0 {
			break
		}

		log.Printf("device: streaming at %#08x: reading %#x bytes", prevCursor, length)
		if err := s.device.xdma.ReadDMA(prevCursor, buffer[:length]); err != nil {
			return written, err
		}
		newCursor := (prevCursor + int64(length)) % int64(regs.MemorySize)
		s.cursor = &newCursor
		written += length
		buffer = buffer[length:]
	}
	return written, nil
}

// Reset discards the streamer's notion of how much data has already been
// consumed, so the next Read only latches the current position instead of
// reporting a spurious burst of "new" data. Callers do this after
// recovering from a Fatal status by power cycling and restarting the device.
func (s *Streamer) Reset() {
	s.cursor = nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
