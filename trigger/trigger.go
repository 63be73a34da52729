/*Package trigger implements the edge-trigger engine: a hysteretic level
trigger over a stream of signed 8-bit ADC samples, scanning in logical
16-sample groups so that an AVX/AVX2-vectorized scan could replace the
generic path without changing observable behavior.
*/
package trigger

import (
	"log"

	"golang.org/x/sys/cpu"
)

func init() {
	// Surfaces which vectorized scan tier a build with real SIMD codegen
	// would dispatch to; this module ships only the generic 16-lane-group
	// path below, matching a host lacking inline asm/intrinsics.
	if cpu.X86.HasAVX2 {
		log.Println("trigger: host supports AVX2; generic scan path in use")
	} else if cpu.X86.HasAVX {
		log.Println("trigger: host supports AVX; generic scan path in use")
	}
}

// EdgeFilter selects which edge polarities Scan/Find report.
type EdgeFilter int

// EdgeFilter values.
const (
	FilterRising  EdgeFilter = 0b01
	FilterFalling EdgeFilter = 0b10
	FilterBoth    EdgeFilter = 0b11
)

// Edge is a detected edge polarity.
type Edge int

// Edge values.
const (
	EdgeRising  Edge = 0b01
	EdgeFalling Edge = 0b10
)

type state int

const (
	stateFresh state = iota
	stateBelow
	stateAbove
)

// groupSize is the logical vector width the generic scan path processes
// samples in; any trailing samples that don't fill a whole group are left
// unconsumed by Scan/Find.
const groupSize = 16

// Trigger is a hysteretic level-edge detector. The zero value is not
// usable; construct with New.
type Trigger struct {
	state state
	level int8
	below int8 // state transitions to Below when a sample is strictly below this
	above int8 // state transitions to Above when a sample is strictly above this
}

func saturatingAdd(level int8, delta uint8) int8 {
	v := int(level) + int(delta)
	if v > 127 {
		return 127
	}
	return int8(v)
}

func saturatingSub(level int8, delta uint8) int8 {
	v := int(level) - int(delta)
	if v < -128 {
		return -128
	}
	return int8(v)
}

// New creates a trigger mechanism at level.
//
// The trigger detects an "above condition" when it processes a sample
// strictly above level+hysteresis, and a "below condition" when it
// processes a sample strictly below level-hysteresis. A rising edge is
// detected where a below condition crosses into an above condition; a
// falling edge where an above condition crosses into a below condition.
//
// Since hysteresis is applied to each half-scale individually, the total
// hysteresis (the amount the input has to change by to overcome the
// trigger's memory) is 1+2*hysteresis. The combination of level and
// hysteresis is clamped to the full scale so that some sequence of sample
// values always causes a trigger to be detected, regardless of setting.
func New(level int8, hysteresis uint8) *Trigger {
	below := saturatingSub(level, hysteresis)
	if below < -127 {
		below = -127
	}
	above := saturatingAdd(level, hysteresis)
	if above > 126 {
		above = 126
	}
	return &Trigger{state: stateFresh, level: level, below: below, above: above}
}

// scanFor advances *samples past complete groupSize-sample groups, invoking
// pred on each sample within a group in order, stopping at the first sample
// that satisfies pred. It never consumes a partial trailing group. Returns
// whether a satisfying sample was found.
func scanFor(samples *[]int8, pred func(int8) bool) bool {
	s := *samples
	offset := 0
	found := false
	for len(s)-offset >= groupSize {
		group := s[offset : offset+groupSize]
		matched := -1
		for i, v := range group {
			if pred(v) {
				matched = i
				break
			}
		}
		if matched >= 0 {
			offset += matched
			found = true
			break
		}
		offset += groupSize
	}
	*samples = s[offset:]
	return found
}

// Scan scans samples for edges matching filter. It advances *samples past
// the samples it has processed: if an edge is found, *samples points to the
// sample that caused it to be detected; otherwise *samples points to
// whatever groupSize-unaligned remainder is left unprocessed.
//
// Processing is done on groups of groupSize samples; trailing samples that
// don't fill a whole group are left unconsumed.
func (t *Trigger) Scan(samples *[]int8, filter EdgeFilter) *Edge {
	s := *samples
	if t.state == stateFresh {
		if len(s) == 0 {
			return nil
		}
		if s[0] < t.level {
			t.state = stateBelow
		} else {
			t.state = stateAbove
		}
		s = s[1:]
	}

	for {
		var found bool
		switch t.state {
		case stateBelow:
			above := t.above
			found = scanFor(&s, func(v int8) bool { return v > above })
		case stateAbove:
			below := t.below
			found = scanFor(&s, func(v int8) bool { return v < below })
		}
		if !found {
			*samples = s
			return nil
		}

		switch t.state {
		case stateBelow:
			t.state = stateAbove // rising edge
		case stateAbove:
			t.state = stateBelow // falling edge
		}

		if t.state == stateAbove && (filter == FilterBoth || filter == FilterRising) {
			*samples = s
			e := EdgeRising
			return &e
		}
		if t.state == stateBelow && (filter == FilterBoth || filter == FilterFalling) {
			*samples = s
			e := EdgeFalling
			return &e
		}
		// edge found but excluded by filter: keep scanning from the new state
	}
}

// Reset returns the trigger to its Fresh state, so the next sample it
// processes re-primes Below/Above from scratch instead of continuing from
// wherever the last scan left off. Callers do this after accepting a
// capture, to resynchronize the trigger against a buffer that may have
// skipped samples (the refill that follows a detected edge).
func (t *Trigger) Reset() {
	t.state = stateFresh
}

// Find is like Scan but returns the number of samples consumed instead of
// mutating a pointer to the caller's slice header.
func (t *Trigger) Find(samples []int8, filter EdgeFilter) (int, *Edge) {
	before := len(samples)
	edge := t.Scan(&samples, filter)
	after := len(samples)
	return before - after, edge
}
