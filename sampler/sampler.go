/*Package sampler implements the acquisition loop that turns a byte-oriented
source — the device's circular memory or a synthetic waveform generator —
into triggered Waveform captures, handed off across a bucket brigade of
SPSC channels to a downstream renderer.
*/
package sampler

import (
	"io"
	"log"

	"github.com/oss-instruments/thunderscope/capture"
	"github.com/oss-instruments/thunderscope/config"
	"github.com/oss-instruments/thunderscope/params"
	"github.com/oss-instruments/thunderscope/trigger"
)

// TriggerHysteresis is the default hysteresis, in ADC LSBs, applied to
// every channel/level trigger the sampler derives.
const TriggerHysteresis uint8 = 2

// SampleCount is the number of samples a single Waveform capture holds.
const SampleCount = 128000

// TriggerParameters selects which channel and level a SingleTrigger or
// RepeatTrigger mode fires on.
type TriggerParameters struct {
	Channel int
	Level   float64 // volts
	Edge    trigger.EdgeFilter
}

// OperationMode selects what the sampler does with each loop iteration.
type OperationMode struct {
	kind    operationKind
	trigger TriggerParameters
}

type operationKind int

const (
	Idle operationKind = iota
	FreeRunning
	SingleTrigger
	RepeatTrigger
)

// ModeIdle produces no captures.
func ModeIdle() OperationMode { return OperationMode{kind: Idle} }

// ModeFreeRunning captures continuously without waiting for a trigger.
func ModeFreeRunning() OperationMode { return OperationMode{kind: FreeRunning} }

// ModeSingleTrigger captures once on the next matching edge, then reverts
// to Idle.
func ModeSingleTrigger(t TriggerParameters) OperationMode {
	return OperationMode{kind: SingleTrigger, trigger: t}
}

// ModeRepeatTrigger captures on every matching edge until the mode changes.
func ModeRepeatTrigger(t TriggerParameters) OperationMode {
	return OperationMode{kind: RepeatTrigger, trigger: t}
}

// Kind reports which operationKind this mode is.
func (m OperationMode) Kind() operationKind { return m.kind }

// Parameters is the full parameter set the sampler applies each time it
// observes a new value on its parameters channel: the register-level
// device parameters plus the operating mode that decides how captures are
// produced from them.
type Parameters struct {
	Device params.DeviceParameters
	Mode   OperationMode
}

// DefaultParameters derives Parameters from the default device
// configuration, in Idle mode.
func DefaultParameters() Parameters {
	return Parameters{
		Device: params.Derive(config.DeviceCalibration{}, config.DefaultDeviceConfiguration()),
		Mode:   ModeIdle(),
	}
}

// DemoParameters is a canned single-channel, repeat-triggered parameter
// set: channel 0 only, enabled, repeat-triggering on a rising edge at
// 1.0V. Used by tests that want a realistic non-default configuration
// without hand-assembling one.
func DemoParameters() Parameters {
	var cfg config.DeviceConfiguration
	ch := config.DefaultChannelConfiguration()
	cfg.Channels[0] = &ch
	return Parameters{
		Device: params.Derive(config.DeviceCalibration{}, cfg),
		Mode: ModeRepeatTrigger(TriggerParameters{
			Channel: 0,
			Level:   1.0,
			Edge:    trigger.FilterRising,
		}),
	}
}

// Waveform is one pool-allocated capture slot: a parameter snapshot, a
// ring buffer the sampler refills from the source, and an optional
// (cursor, length) marking where within that buffer the most recent
// capture lies.
type Waveform struct {
	Params  Parameters
	Buffer  *capture.RingBuffer
	capture *waveformCapture
}

type waveformCapture struct {
	cursor capture.RingCursor
	length int
}

// NewWaveform allocates a Waveform with a ring buffer of the given size.
func NewWaveform(size int) (*Waveform, error) {
	buf, err := capture.NewRingBuffer(size)
	if err != nil {
		return nil, err
	}
	return &Waveform{Params: DefaultParameters(), Buffer: buf}, nil
}

// Close releases the waveform's ring buffer.
func (w *Waveform) Close() { w.Buffer.Close() }

// CaptureData returns the most recently captured sample slice, or nil if
// no capture is currently held.
func (w *Waveform) CaptureData() []int8 {
	if w.capture == nil {
		return nil
	}
	return w.Buffer.Read(w.capture.cursor, w.capture.length)
}

// DataSource is something a sampler can read triggered samples from: the
// device streamer, or a synthetic generator for testing without hardware.
type DataSource interface {
	io.Reader
}

// Sampler runs the trigger-and-capture loop described in the bucket-
// brigade model: one active Waveform being filled, one optional standby
// held back so the active one can always be submitted without blocking.
type Sampler struct {
	paramsRecv   <-chan Parameters
	waveformRecv <-chan *Waveform
	waveformSend chan<- *Waveform

	// reconfigure is invoked whenever a new Parameters value arrives,
	// typically device.Configure for a hardware source and a no-op for a
	// synthetic one.
	reconfigure func(params.DeviceParameters) error
}

// New constructs a Sampler wired to the given channel triple: incoming
// parameter updates, incoming (returned) waveforms, and outgoing
// (captured) waveforms.
func New(paramsRecv <-chan Parameters, waveformRecv <-chan *Waveform, waveformSend chan<- *Waveform, reconfigure func(params.DeviceParameters) error) *Sampler {
	return &Sampler{
		paramsRecv:   paramsRecv,
		waveformRecv: waveformRecv,
		waveformSend: waveformSend,
		reconfigure:  reconfigure,
	}
}

type activeTrigger struct {
	trig   *trigger.Trigger
	filter trigger.EdgeFilter
}

// Run executes the loop body until the incoming waveform channel is
// closed, at which point it returns cleanly. It blocks on the very first
// waveform receive (priming the bucket brigade), and otherwise blocks only
// inside reader.Read.
func (s *Sampler) Run(reader io.Reader) error {
	active, ok := <-s.waveformRecv
	if !ok {
		return nil
	}
	var standby *Waveform
	current := DefaultParameters()
	var trig *activeTrigger

	for {
		// 1. non-blocking poll of the parameters channel.
		select {
		case p, ok := <-s.paramsRecv:
			if ok {
				log.Printf("sampler: switching parameters to %+v", p)
				current = p
				trig = deriveTrigger(p)
				if err := s.reconfigure(p.Device); err != nil {
					return err
				}
			}
		default:
		}

		// 2. non-blocking poll of the incoming waveform channel.
		select {
		case w, ok := <-s.waveformRecv:
			if !ok {
				log.Println("sampler: done")
				return nil
			}
			standby = w
		default:
		}

		// 3. reset the active waveform's capture slot; snapshot parameters.
		active.capture = nil
		active.Params = current
		cursor := active.Buffer.Cursor()

		// 4. refill to capacity in one read.
		refillBy := active.Buffer.Len()
		available, err := active.Buffer.Append(refillBy, reader.Read)
		if err != nil {
			return err
		}
		log.Printf("sampler: refilled buffer by %d bytes (%d available)", refillBy, available)

		// 5. mode dispatch.
		switch current.Mode.Kind() {
		case FreeRunning:
			active.capture = &waveformCapture{cursor: cursor, length: SampleCount}
			log.Printf("sampler: captured waveform free running (%d+%d)", cursor.Index(), SampleCount)
		case SingleTrigger, RepeatTrigger:
			if trig != nil {
				data := active.Buffer.Read(cursor, available)
				processed, edge := trig.trig.Find(data, trig.filter)
				cursor = cursor.Add(processed)
				available -= processed
				log.Printf("sampler: trigger consumed %d bytes (%d available)", processed, available)
				if edge != nil {
					if available < SampleCount {
						refillBy := SampleCount - available
						more, err := active.Buffer.Append(refillBy, reader.Read)
						if err != nil {
							return err
						}
						available += more
						log.Printf("sampler: refilled buffer by %d bytes (%d available)", refillBy, available)
					}
					active.capture = &waveformCapture{cursor: cursor, length: SampleCount}
					log.Printf("sampler: captured waveform for %v edge (%d+%d)", *edge, cursor.Index(), SampleCount)
					trig.trig.Reset()
				}
			}
		}

		// 6. submit or discard.
		if active.capture != nil {
			if standby != nil {
				if current.Mode.Kind() == SingleTrigger {
					current.Mode = ModeIdle()
					trig = nil
				}
				s.waveformSend <- active
				log.Println("sampler: submitted waveform")
				active = standby
				standby = nil
			} else {
				active.capture = nil
				log.Println("sampler: discarded waveform")
			}
		}
	}
}

func deriveTrigger(p Parameters) *activeTrigger {
	switch p.Mode.Kind() {
	case SingleTrigger, RepeatTrigger:
		tp := p.Mode.trigger
		level := p.Device.VoltsToCode(tp.Channel, tp.Level)
		return &activeTrigger{trig: trigger.New(level, TriggerHysteresis), filter: tp.Edge}
	default:
		return nil
	}
}
