/*Package config holds the high-level, physical-quantity configuration of a
ThunderScope device: what a user or calibration table would set, before it is
translated into register-level parameters by package params.
*/
package config

// Termination is the input termination impedance presented to the probe.
type Termination int

// Termination values.
const (
	// Ohm1M is the default, high-impedance termination.
	Ohm1M Termination = iota
	Ohm50
)

func (t Termination) String() string {
	switch t {
	case Ohm1M:
		return "1MOhm"
	case Ohm50:
		return "50Ohm"
	default:
		return "unknown"
	}
}

// Coupling selects AC or DC input coupling.
type Coupling int

// Coupling values.
const (
	// DC is the default coupling.
	DC Coupling = iota
	AC
)

func (c Coupling) String() string {
	switch c {
	case DC:
		return "DC"
	case AC:
		return "AC"
	default:
		return "unknown"
	}
}

// Bandwidth selects the analog front-end's low-pass filter corner.
type Bandwidth int

// Bandwidth values.
const (
	BandwidthMHz20 Bandwidth = iota
	// BandwidthMHz100 is the default.
	BandwidthMHz100
	BandwidthMHz200
	BandwidthMHz350
	BandwidthOff
)

func (b Bandwidth) String() string {
	switch b {
	case BandwidthMHz20:
		return "20MHz"
	case BandwidthMHz100:
		return "100MHz"
	case BandwidthMHz200:
		return "200MHz"
	case BandwidthMHz350:
		return "350MHz"
	case BandwidthOff:
		return "off"
	default:
		return "unknown"
	}
}

// ChannelConfiguration is the physical-quantity configuration of a single
// analog input channel.
type ChannelConfiguration struct {
	// ProbeAttenuation is the probe's attenuation in dB. 0.0 for a 1X probe,
	// 20.0 for a 10X probe.
	ProbeAttenuation float32 `koanf:"probeAttenuation"`

	Termination Termination `koanf:"termination"`
	Coupling    Coupling    `koanf:"coupling"`
	Bandwidth   Bandwidth   `koanf:"bandwidth"`
}

// DefaultChannelConfiguration returns the channel configuration assumed by a
// fresh device: a 10X probe, 1 MOhm termination, DC coupling, 100 MHz
// bandwidth.
func DefaultChannelConfiguration() ChannelConfiguration {
	return ChannelConfiguration{
		ProbeAttenuation: 20.0,
		Termination:      Ohm1M,
		Coupling:         DC,
		Bandwidth:        BandwidthMHz100,
	}
}

// DeviceConfiguration is the physical-quantity configuration of all four
// analog input channels. A nil entry means the channel is disabled and not
// acquired.
type DeviceConfiguration struct {
	Channels [4]*ChannelConfiguration
}

// DefaultDeviceConfiguration returns a DeviceConfiguration with all four
// channels enabled at their default settings.
func DefaultDeviceConfiguration() DeviceConfiguration {
	var d DeviceConfiguration
	for i := range d.Channels {
		ch := DefaultChannelConfiguration()
		d.Channels[i] = &ch
	}
	return d
}

// ChannelCalibration holds per-channel calibration data. Presently empty:
// automatic derivation of calibration coefficients is out of scope, but the
// structure is kept so that a calibration table can be threaded through
// params.Derive without an API break once it is populated.
type ChannelCalibration struct{}

// DeviceCalibration holds calibration data for all four channels.
type DeviceCalibration struct {
	Channels [4]ChannelCalibration
}
