// Command thunderscope-selftest exercises a ThunderScope without a GUI or
// remote-control protocol: it runs the sampler against the synthetic sine
// generator unconditionally, and against real hardware if present, and
// reports pass/fail for each check.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/oss-instruments/thunderscope/config"
	"github.com/oss-instruments/thunderscope/device"
	"github.com/oss-instruments/thunderscope/params"
	"github.com/oss-instruments/thunderscope/sampler"
	"github.com/oss-instruments/thunderscope/xdma"
)

var (
	configPath = flag.String("config", "thunderscope.yml", "device configuration file")
	calibPath  = flag.String("calibration", "thunderscope-calibration.yml", "calibration file")
)

func pass(name string) {
	color.New(color.FgGreen).Printf("PASS")
	fmt.Printf(" %s\n", name)
}

func fail(name string, err error) {
	color.New(color.FgRed).Printf("FAIL")
	fmt.Printf(" %s: %v\n", name, err)
}

func skip(name string, reason string) {
	color.New(color.FgYellow).Printf("SKIP")
	fmt.Printf(" %s: %s\n", name, reason)
}

func main() {
	flag.Parse()

	deviceConfig, err := config.LoadDeviceConfiguration(*configPath)
	if err != nil {
		fail("load device configuration", err)
		os.Exit(1)
	}
	calibration, err := config.LoadCalibration(*calibPath)
	if err != nil {
		fail("load calibration", err)
		os.Exit(1)
	}

	ok := true
	ok = runSineGeneratorTest() && ok
	ok = runHardwareTest(deviceConfig, calibration) && ok

	if !ok {
		os.Exit(1)
	}
}

// runSineGeneratorTest drives one full capture through the sampler loop
// against the synthetic source, requiring no hardware; this always runs
// and is expected to always pass.
func runSineGeneratorTest() bool {
	const name = "sampler against sine generator"

	waveformRecv := make(chan *sampler.Waveform, 2)
	waveformSend := make(chan *sampler.Waveform, 2)
	paramsCh := make(chan sampler.Parameters, 1)

	w1, err := sampler.NewWaveform(sampler.SampleCount * 2)
	if err != nil {
		fail(name, err)
		return false
	}
	defer w1.Close()
	w2, err := sampler.NewWaveform(sampler.SampleCount * 2)
	if err != nil {
		fail(name, err)
		return false
	}
	defer w2.Close()
	waveformRecv <- w1
	waveformRecv <- w2
	paramsCh <- sampler.Parameters{Device: params.DefaultDeviceParameters(), Mode: sampler.ModeFreeRunning()}

	s := sampler.New(paramsCh, waveformRecv, waveformSend, func(params.DeviceParameters) error { return nil })

	done := make(chan error, 1)
	go func() { done <- s.Run(sampler.NewSineGenerator(1e6)) }()

	select {
	case w := <-waveformSend:
		if w.CaptureData() == nil {
			fail(name, errors.New("submitted waveform carried no capture"))
			close(waveformRecv)
			return false
		}
	case <-time.After(10 * time.Second):
		fail(name, errors.New("timed out waiting for a capture"))
		close(waveformRecv)
		return false
	}

	close(waveformRecv)
	if err := <-done; err != nil {
		fail(name, err)
		return false
	}
	pass(name)
	return true
}

// runHardwareTest runs Startup/Shutdown against the real device, if one is
// present. Absence of the device node is a SKIP, not a FAIL: this binary
// is also run in CI environments with no ThunderScope attached.
func runHardwareTest(deviceConfig config.DeviceConfiguration, calibration config.DeviceCalibration) bool {
	const name = "hardware startup/configure/shutdown"

	resolved := params.Derive(calibration, deviceConfig)
	err := device.With(func(d *device.Device) error {
		return d.Configure(resolved)
	})
	if err != nil {
		if errors.Is(err, xdma.ErrNotFound) {
			skip(name, "no device node present")
			return true
		}
		fail(name, err)
		return false
	}
	pass(name)
	return true
}
