package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oss-instruments/thunderscope/config"
)

func TestDefaultDeviceConfigurationAllChannelsEnabled(t *testing.T) {
	d := config.DefaultDeviceConfiguration()
	for i, ch := range d.Channels {
		if ch == nil {
			t.Fatalf("channel %d expected enabled by default", i)
		}
		if ch.ProbeAttenuation != 20.0 {
			t.Errorf("channel %d: expected 20dB probe attenuation, got %f", i, ch.ProbeAttenuation)
		}
		if ch.Termination != config.Ohm1M {
			t.Errorf("channel %d: expected Ohm1M termination by default", i)
		}
		if ch.Bandwidth != config.BandwidthMHz100 {
			t.Errorf("channel %d: expected 100MHz bandwidth by default", i)
		}
	}
}

func TestLoadDeviceConfigurationMissingFileUsesDefaults(t *testing.T) {
	d, err := config.LoadDeviceConfiguration(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("unexpected error for missing config file: %v", err)
	}
	for i, ch := range d.Channels {
		if ch == nil {
			t.Fatalf("channel %d expected enabled by default when no file present", i)
		}
	}
}

func TestLoadDeviceConfigurationOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thunderscope.yml")
	yml := `
channels:
  - enabled: true
    probeAttenuation: 0
    termination: 1
    coupling: 1
    bandwidth: 3
  - enabled: false
  - enabled: true
  - enabled: true
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	d, err := config.LoadDeviceConfiguration(path)
	if err != nil {
		t.Fatalf("LoadDeviceConfiguration: %v", err)
	}
	if d.Channels[0] == nil {
		t.Fatalf("expected channel 0 enabled")
	}
	if d.Channels[0].Termination != config.Ohm50 {
		t.Errorf("expected channel 0 termination overridden to Ohm50")
	}
	if d.Channels[0].Coupling != config.AC {
		t.Errorf("expected channel 0 coupling overridden to AC")
	}
	if d.Channels[0].Bandwidth != config.BandwidthMHz350 {
		t.Errorf("expected channel 0 bandwidth overridden to 350MHz")
	}
	if d.Channels[1] != nil {
		t.Errorf("expected channel 1 disabled")
	}
}
