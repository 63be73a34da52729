package regs_test

import (
	"testing"

	"github.com/oss-instruments/thunderscope/regs"
)

func TestControlChannelHelpers(t *testing.T) {
	cases := []struct {
		index   int
		termBit uint
		attnBit uint
		coupBit uint
	}{
		{0, regs.ControlCh1Termination, regs.ControlCh1Attenuator, regs.ControlCh1Coupling},
		{1, regs.ControlCh2Termination, regs.ControlCh2Attenuator, regs.ControlCh2Coupling},
		{2, regs.ControlCh3Termination, regs.ControlCh3Attenuator, regs.ControlCh3Coupling},
		{3, regs.ControlCh4Termination, regs.ControlCh4Attenuator, regs.ControlCh4Coupling},
	}
	for _, c := range cases {
		if got := regs.ChTermination(c.index); got != c.termBit {
			t.Errorf("ChTermination(%d) = %d, want %d", c.index, got, c.termBit)
		}
		if got := regs.ChAttenuator(c.index); got != c.attnBit {
			t.Errorf("ChAttenuator(%d) = %d, want %d", c.index, got, c.attnBit)
		}
		if got := regs.ChCoupling(c.index); got != c.coupBit {
			t.Errorf("ChCoupling(%d) = %d, want %d", c.index, got, c.coupBit)
		}
	}
}

func TestControlSetGet(t *testing.T) {
	var c regs.Control
	c = c.Set(regs.ControlDatamoverHaltN, true)
	c = c.Set(regs.ControlRail5VEnabled, true)
	if !c.Get(regs.ControlDatamoverHaltN) {
		t.Errorf("expected DatamoverHaltN set")
	}
	if !c.Get(regs.ControlRail5VEnabled) {
		t.Errorf("expected Rail5VEnabled set")
	}
	if c.Get(regs.ControlClockGenResetN) {
		t.Errorf("expected ClockGenResetN clear")
	}
	c = c.Set(regs.ControlDatamoverHaltN, false)
	if c.Get(regs.ControlDatamoverHaltN) {
		t.Errorf("expected DatamoverHaltN cleared after Set(false)")
	}
}

func TestStatusFields(t *testing.T) {
	// pages_moved=12 (bits 0-15), overflow_cycles=3 (bits 16-29), FifoOverflow set (bit 30)
	s := regs.Status(12 | (3 << 16) | (1 << regs.StatusFifoOverflow))
	if got := s.PagesMoved(); got != 12 {
		t.Errorf("PagesMoved() = %d, want 12", got)
	}
	if got := s.OverflowCycles(); got != 3 {
		t.Errorf("OverflowCycles() = %d, want 3", got)
	}
	if !s.Fatal() {
		t.Errorf("expected Fatal() true with FifoOverflow set")
	}
}

func TestStatusNotFatal(t *testing.T) {
	s := regs.Status(100)
	if s.Fatal() {
		t.Errorf("expected Fatal() false for plain pages_moved value")
	}
}

func TestFifoISRBits(t *testing.T) {
	isr := regs.FifoISR(1<<regs.FifoISRTC | 1<<regs.FifoISRTPOE)
	if !isr.Get(regs.FifoISRTC) {
		t.Errorf("expected TC bit set")
	}
	if !isr.Get(regs.FifoISRTPOE) {
		t.Errorf("expected TPOE bit set")
	}
	if isr.Get(regs.FifoISRRC) {
		t.Errorf("expected RC bit clear")
	}
}
