/*Package params models the low-level, register-level parameters of a
ThunderScope channel: the analog front-end settings that map 1:1 onto values
written into the LMH6518 programmable-gain amplifier, the HMCAD1520 ADC, and
the per-channel offset DAC/digipot, together with the gain/voltage math that
relates them to the physical-quantity config.DeviceConfiguration.
*/
package params

import (
	"math"

	"github.com/oss-instruments/thunderscope/config"
	"github.com/oss-instruments/thunderscope/mathx"
	"github.com/oss-instruments/thunderscope/util"
)

// probeAttenuationRange bounds the dB range Derive accepts for
// ChannelConfiguration.ProbeAttenuation: 0dB covers a 1X probe, 40dB covers
// a 100X probe. Anything outside that is almost certainly a unit mistake
// (e.g. linear attenuation entered where dB was expected) rather than a
// real probe.
var probeAttenuationRange = util.Limiter{Min: 0.0, Max: 40.0}

// CoarseAttenuation is the 1X/50X input attenuator relay setting.
type CoarseAttenuation int

// CoarseAttenuation values.
const (
	CoarseAttenuationX1 CoarseAttenuation = iota
	// CoarseAttenuationX50 is the default.
	CoarseAttenuationX50
)

// AllCoarseAttenuation enumerates every CoarseAttenuation value.
var AllCoarseAttenuation = [...]CoarseAttenuation{CoarseAttenuationX1, CoarseAttenuationX50}

// gain returns the signal-path gain contributed by this setting, in dB.
func (c CoarseAttenuation) gain() float64 {
	switch c {
	case CoarseAttenuationX1:
		return 0.0
	case CoarseAttenuationX50:
		return -33.9794
	default:
		panic("params: invalid CoarseAttenuation")
	}
}

// Amplification is the LMH6518 pre-amplifier gain setting.
type Amplification int

// Amplification values.
const (
	AmplificationDB10 Amplification = iota
	// AmplificationDB30 is the default.
	AmplificationDB30
)

// AllAmplification enumerates every Amplification value.
var AllAmplification = [...]Amplification{AmplificationDB10, AmplificationDB30}

// LMH6518Code returns the 1-bit pre-amplifier gain field of the LMH6518
// command word, already shifted into bit 4.
func (a Amplification) LMH6518Code() uint16 {
	var bit uint16
	if a == AmplificationDB30 {
		bit = 0b1
	}
	return bit << 4
}

func (a Amplification) gain() float64 {
	switch a {
	case AmplificationDB10:
		return 10.0
	case AmplificationDB30:
		return 30.0
	default:
		panic("params: invalid Amplification")
	}
}

// FineAttenuation is the LMH6518 ladder attenuator setting, in steps of 2dB
// from 0 to 20dB.
type FineAttenuation int

// FineAttenuation values.
const (
	// FineAttenuationDB0 is the default.
	FineAttenuationDB0 FineAttenuation = iota
	FineAttenuationDB2
	FineAttenuationDB4
	FineAttenuationDB6
	FineAttenuationDB8
	FineAttenuationDB10
	FineAttenuationDB12
	FineAttenuationDB14
	FineAttenuationDB16
	FineAttenuationDB18
	FineAttenuationDB20
)

// AllFineAttenuation enumerates every FineAttenuation value.
var AllFineAttenuation = [...]FineAttenuation{
	FineAttenuationDB0, FineAttenuationDB2, FineAttenuationDB4, FineAttenuationDB6,
	FineAttenuationDB8, FineAttenuationDB10, FineAttenuationDB12, FineAttenuationDB14,
	FineAttenuationDB16, FineAttenuationDB18, FineAttenuationDB20,
}

// LMH6518Code returns the 4-bit ladder attenuator field of the LMH6518
// command word, unshifted (occupies bits 0-3).
func (f FineAttenuation) LMH6518Code() uint16 {
	return uint16(f)
}

func (f FineAttenuation) gain() float64 {
	return -2.0 * float64(f)
}

// Filtering is the LMH6518 output low-pass filter setting.
type Filtering int

// Filtering values.
const (
	FilteringMHz20 Filtering = iota
	// FilteringMHz100 is the default.
	FilteringMHz100
	FilteringMHz200
	FilteringMHz350
	FilteringOff
)

// LMH6518Code returns the 3-bit filter-select field of the LMH6518 command
// word, shifted into bits 6-8.
func (f Filtering) LMH6518Code() uint16 {
	var code uint16
	switch f {
	case FilteringMHz20:
		code = 0b001
	case FilteringMHz100:
		code = 0b010
	case FilteringMHz200:
		code = 0b011
	case FilteringMHz350:
		code = 0b100
	case FilteringOff:
		code = 0b000
	default:
		panic("params: invalid Filtering")
	}
	return code << 6
}

// offsetMagnitudeMinOhms and offsetMagnitudeMaxOhms bound the MCP4432T-503E
// digipot's resistance range: a 50 kOhm wiper plus its ~75 Ohm wiper
// resistance floor.
const (
	offsetMagnitudeMinOhms = 75
	offsetMagnitudeMaxOhms = 50000 + 75
	offsetMagnitudeFullOhm = 50000
	offsetMagnitudeSteps   = 128
)

// OffsetMagnitude is the 7-bit wiper code of the MCP4432T-503E digital
// potentiometer that sets the per-channel offset adjustment range.
type OffsetMagnitude struct {
	code uint16
}

// DefaultOffsetMagnitude is the digipot's mid-scale code.
func DefaultOffsetMagnitude() OffsetMagnitude {
	return OffsetMagnitude{code: 0x40}
}

// OffsetMagnitudeFromCode constructs an OffsetMagnitude from a raw
// MCP4432T-503E wiper code.
func OffsetMagnitudeFromCode(code uint16) OffsetMagnitude {
	return OffsetMagnitude{code: code}
}

// MCP4432TCode returns the raw wiper code to write to the digipot.
func (o OffsetMagnitude) MCP4432TCode() uint16 {
	return o.code
}

// OffsetMagnitudeFromOhms constructs an OffsetMagnitude from a target
// resistance, rounding to the nearest representable wiper code. ohms must
// lie within [75, 50075]; callers exceeding that range have a programming
// error, not a runtime condition, so this panics rather than erroring.
func OffsetMagnitudeFromOhms(ohms uint32) OffsetMagnitude {
	if ohms < offsetMagnitudeMinOhms || ohms > offsetMagnitudeMaxOhms {
		panic("params: offset magnitude ohms out of range [75, 50075]")
	}
	const halfLSB = (offsetMagnitudeFullOhm / offsetMagnitudeSteps) / 2
	code := (ohms - offsetMagnitudeMinOhms + halfLSB) * offsetMagnitudeSteps / offsetMagnitudeFullOhm
	return OffsetMagnitude{code: uint16(code)}
}

// Ohms returns the resistance this wiper code sets, in ohms.
func (o OffsetMagnitude) Ohms() uint32 {
	return uint32(o.code)*offsetMagnitudeFullOhm/offsetMagnitudeSteps + offsetMagnitudeMinOhms
}

// OffsetValue is the 12-bit code written to the MCP4728 trim-DAC that sets
// the per-channel offset voltage.
type OffsetValue struct {
	code uint16
}

// DefaultOffsetValue is the trim-DAC's mid-scale code.
func DefaultOffsetValue() OffsetValue {
	return OffsetValue{code: 0x3fff}
}

// OffsetValueFromCode constructs an OffsetValue from a raw MCP4728 code.
func OffsetValueFromCode(code uint16) OffsetValue {
	return OffsetValue{code: code}
}

// MCP4728Code returns the raw code to write to the trim-DAC.
func (o OffsetValue) MCP4728Code() uint16 {
	return o.code
}

// ChannelParameters are the fully-resolved, register-level settings for one
// analog input channel.
type ChannelParameters struct {
	ProbeAttenuation  float64
	Termination       config.Termination
	Coupling          config.Coupling
	CoarseAttenuation CoarseAttenuation
	Amplification     Amplification
	FineAttenuation   FineAttenuation
	Filtering         Filtering
	OffsetMagnitude   OffsetMagnitude
	OffsetValue       OffsetValue
}

// DefaultChannelParameters returns the parameter set for a fresh channel: a
// 10X probe with 50X coarse attenuation, 30dB pre-amplification, and no
// fine attenuation, matching the original implementation's
// ChannelParameters::default().
func DefaultChannelParameters() ChannelParameters {
	return ChannelParameters{
		ProbeAttenuation:  20.0,
		Termination:       config.Ohm1M,
		Coupling:          config.DC,
		CoarseAttenuation: CoarseAttenuationX50,
		Amplification:     AmplificationDB30,
		FineAttenuation:   FineAttenuationDB0,
		Filtering:         FilteringMHz100,
		OffsetMagnitude:   DefaultOffsetMagnitude(),
		OffsetValue:       DefaultOffsetValue(),
	}
}

// gain returns the total signal-path gain for this channel, in decibels,
// given the HMCAD1520's coarse gain setting (itself a function of how many
// channels are simultaneously active).
func (c ChannelParameters) gain(adcCoarseGain float64) float64 {
	return -c.ProbeAttenuation +
		c.CoarseAttenuation.gain() + // 1X/50X attenuation switch
		c.Amplification.gain() + // LMH6518 pre-amplifier
		c.FineAttenuation.gain() + // LMH6518 ladder attenuator
		8.8600 + // LMH6518 output amplifier
		adcCoarseGain - // HMCAD1520 coarse gain
		0.3546 // HMCAD1520 full scale adjustment
}

// DeviceParameters are the fully-resolved, register-level parameters for all
// four channels. A nil entry means the channel is disabled.
type DeviceParameters struct {
	Channels [4]*ChannelParameters
}

// DefaultDeviceParameters returns a DeviceParameters with all four channels
// enabled at their default settings.
func DefaultDeviceParameters() DeviceParameters {
	var d DeviceParameters
	for i := range d.Channels {
		ch := DefaultChannelParameters()
		d.Channels[i] = &ch
	}
	return d
}

// adcCoarseGain returns the HMCAD1520's coarse gain setting, in dB, for the
// given number of simultaneously active channels: the ADC runs a lower
// per-channel gain when more channels share its sample-rate budget.
func adcCoarseGain(activeChannels int) float64 {
	switch activeChannels {
	case 4, 3, 2:
		return 9.0
	case 1:
		return 10.0
	default:
		panic("params: activeChannels must be in [1,4]")
	}
}

func (d DeviceParameters) activeChannelCount() int {
	n := 0
	for _, ch := range d.Channels {
		if ch != nil {
			n++
		}
	}
	return n
}

// Gain returns the total signal-path gain for the given channel index, in
// decibels. Panics if the channel is disabled or the device has no active
// channels.
func (d DeviceParameters) Gain(channelIndex int) float64 {
	n := d.activeChannelCount()
	if n == 0 || d.Channels[channelIndex] == nil {
		panic("params: channel disabled or device has no active channels")
	}
	return d.Channels[channelIndex].gain(adcCoarseGain(n))
}

// FullScale returns the voltage difference, as measured at the probe,
// between the most negative and most positive ADC code for the given
// channel, in volts.
func (d DeviceParameters) FullScale(channelIndex int) float64 {
	return 2.0 * math.Pow(10.0, -d.Gain(channelIndex)/20.0)
}

// VoltsToCode converts a voltage (as measured at the probe) to the signed
// 8-bit ADC code, saturating to the most negative or most positive code for
// out-of-range values. Go's float-to-int8 conversion does not saturate the
// way Rust's post-1.45 `as i8` cast does, so the clamp here is explicit.
func (d DeviceParameters) VoltsToCode(channelIndex int, volts float64) int8 {
	fullScale := d.FullScale(channelIndex)
	raw := 256.0 * (volts / fullScale)
	return int8(util.Clamp(raw, -128.0, 127.0))
}

// CodeToVolts converts a signed 8-bit ADC code to voltage, as measured at
// the probe.
func (d DeviceParameters) CodeToVolts(channelIndex int, code int8) float64 {
	fullScale := d.FullScale(channelIndex)
	return float64(code) / 256.0 * fullScale
}

// Derive resolves a DeviceConfiguration (and, eventually, a
// config.DeviceCalibration) into the register-level DeviceParameters
// needed to program the device. Automatic derivation of the gain-staging
// fields (CoarseAttenuation, Amplification, FineAttenuation) and offset
// calibration from the calibration table is out of scope (spec Non-goal:
// "computing calibration coefficients from raw measurements"); this uses
// fixed placeholder settings for those fields, mirroring the upstream
// FIXME markers, while resolving everything config.ChannelConfiguration
// states directly.
func Derive(calibration config.DeviceCalibration, configuration config.DeviceConfiguration) DeviceParameters {
	var d DeviceParameters
	for i, ch := range configuration.Channels {
		if ch == nil {
			continue
		}
		if !probeAttenuationRange.Check(float64(ch.ProbeAttenuation)) {
			panic("params: probe attenuation out of range [0, 40] dB")
		}
		p := ChannelParameters{
			ProbeAttenuation:  float64(ch.ProbeAttenuation),
			Termination:       ch.Termination,
			Coupling:          ch.Coupling,
			CoarseAttenuation: CoarseAttenuationX1,
			Amplification:     AmplificationDB10,
			FineAttenuation:   FineAttenuationDB20,
			Filtering:         filteringFor(ch.Bandwidth),
			OffsetMagnitude:   DefaultOffsetMagnitude(),
			OffsetValue:       DefaultOffsetValue(),
		}
		d.Channels[i] = &p
	}
	_ = calibration // reserved for when calibration coefficients are populated
	return d
}

func filteringFor(b config.Bandwidth) Filtering {
	switch b {
	case config.BandwidthMHz20:
		return FilteringMHz20
	case config.BandwidthMHz100:
		return FilteringMHz100
	case config.BandwidthMHz200:
		return FilteringMHz200
	case config.BandwidthMHz350:
		return FilteringMHz350
	case config.BandwidthOff:
		return FilteringOff
	default:
		panic("params: invalid config.Bandwidth")
	}
}

// RoundToWiperStep snaps a target resistance to the nearest digipot step,
// for callers that want to report the resistance OffsetMagnitudeFromOhms
// will actually produce before committing to it.
func RoundToWiperStep(ohms float64) float64 {
	step := float64(offsetMagnitudeFullOhm) / float64(offsetMagnitudeSteps)
	return mathx.Round(ohms-offsetMagnitudeMinOhms, step) + offsetMagnitudeMinOhms
}
