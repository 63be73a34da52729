package device

import (
	"testing"

	"github.com/oss-instruments/thunderscope/params"
	"github.com/oss-instruments/thunderscope/regs"
)

// deriveADCChannelPlan is pure, so the channel-mux/insel permutation logic
// can be table-tested directly without a real transport. Expected insel
// values are cross-checked against original_source/src/device.rs's
// enabled.iter().rev().position(...) derivation: channels are wired
// CH1..CH4 on the faceplate to IN4..IN1 on the ADC, so insel holds each
// enabled channel's reverse position, not its forward array index.
func TestDeriveADCChannelPlan(t *testing.T) {
	cases := []struct {
		name    string
		enabled [4]bool
		want    adcChannelPlan
	}{
		{
			"single ch0",
			[4]bool{true, false, false, false},
			adcChannelPlan{clkdiv: 0, chnum: 1, chmux: 0, insel: [4]int{3, 3, 3, 3}},
		},
		{
			"single ch3",
			[4]bool{false, false, false, true},
			adcChannelPlan{clkdiv: 0, chnum: 1, chmux: 0, insel: [4]int{0, 0, 0, 0}},
		},
		{
			"pair",
			[4]bool{true, true, false, false},
			adcChannelPlan{clkdiv: 1, chnum: 2, chmux: regs.Control(1 << regs.ControlChannelMux0), insel: [4]int{3, 3, 2, 2}},
		},
		{
			"quad",
			[4]bool{true, true, true, true},
			adcChannelPlan{clkdiv: 2, chnum: 4, chmux: regs.Control(1 << regs.ControlChannelMux1), insel: [4]int{3, 2, 1, 0}},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := deriveADCChannelPlan(c.enabled)
			if got != c.want {
				t.Errorf("deriveADCChannelPlan(%v) = %+v, want %+v", c.enabled, got, c.want)
			}
		})
	}
}

// TestDeriveADCChannelPlanInsel12RegisterWord pins the exact register word
// written for the 1-channel case, matching the worked example in
// original_source/src/device.rs: CH1 alone selects insel=[3,3,3,3], giving
// Insel12 = 0x0200<<3 | 0x0002<<3 = 0x1010.
func TestDeriveADCChannelPlanInsel12RegisterWord(t *testing.T) {
	plan := deriveADCChannelPlan([4]bool{true, false, false, false})
	word := uint16(0x0200<<uint(plan.insel[1])) | uint16(0x0002<<uint(plan.insel[0]))
	if word != 0x1010 {
		t.Errorf("Insel12 word = %#04x, want %#04x", word, 0x1010)
	}
}

func TestConfigureDefaultsResolveAllFourChannels(t *testing.T) {
	p := params.DefaultDeviceParameters()
	for i, ch := range p.Channels {
		if ch == nil {
			t.Fatalf("channel %d: expected default DeviceParameters to enable every channel", i)
		}
	}
}

func TestStreamerZeroValueHasNoLatchedCursor(t *testing.T) {
	s := &Streamer{}
	if s.cursor != nil {
		t.Fatal("zero-value Streamer must start with no latched cursor")
	}
}

func TestStreamerResetClearsCursor(t *testing.T) {
	c := int64(4096)
	s := &Streamer{cursor: &c}
	s.Reset()
	if s.cursor != nil {
		t.Fatalf("Reset() left cursor = %v, want nil", s.cursor)
	}
}
