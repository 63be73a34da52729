/*Package device implements the ThunderScope device controller: register
bring-up/teardown, the SPI/I2C-over-FIFO gateway protocol used to program
the PLL, ADC, PGAs and offset DACs, and the Streamer that turns the device's
circular memory into a byte stream.
*/
package device

import (
	"encoding/binary"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/oss-instruments/thunderscope/config"
	"github.com/oss-instruments/thunderscope/params"
	"github.com/oss-instruments/thunderscope/regs"
	"github.com/oss-instruments/thunderscope/util"
	"github.com/oss-instruments/thunderscope/xdma"
)

// ErrXdmaIo wraps any transport failure against the user-register or DMA
// channel nodes.
var ErrXdmaIo = errors.New("device: transport error")

// DefaultPath is the device-node path prefix probed by New.
const DefaultPath = "/dev/xdma0"

// Device is a configured ThunderScope acquisition core.
type Device struct {
	xdma *xdma.Device
}

// New discovers and opens the device at DefaultPath, without configuring
// it. Most callers want With, which also runs Startup/Shutdown.
func New() (*Device, error) {
	x, err := xdma.Open(DefaultPath)
	if err != nil {
		return nil, err
	}
	return &Device{xdma: x}, nil
}

// With opens the device, runs Startup, invokes f, and always runs Shutdown
// afterward — even if f returns an error — then closes the device.
func With(f func(*Device) error) error {
	d, err := New()
	if err != nil {
		return err
	}
	defer d.xdma.Close()
	if err := d.Startup(); err != nil {
		return err
	}
	result := f(d)
	if err := d.Shutdown(); err != nil {
		if result == nil {
			result = err
		}
	}
	return result
}

func (d *Device) readUserU32(addr int64) (uint32, error) {
	var buf [4]byte
	if err := d.xdma.ReadUser(addr, buf[:]); err != nil {
		return 0, errors.Wrap(ErrXdmaIo, err.Error())
	}
	v := binary.LittleEndian.Uint32(buf[:])
	log.Printf("device: read_user_u32(%#x) = %#x", addr, v)
	return v, nil
}

func (d *Device) writeUserU32(addr int64, v uint32) error {
	log.Printf("device: write_user_u32(%#x, %#x)", addr, v)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if err := d.xdma.WriteUser(addr, buf[:]); err != nil {
		return errors.Wrap(ErrXdmaIo, err.Error())
	}
	return nil
}

func (d *Device) readControl() (regs.Control, error) {
	v, err := d.readUserU32(regs.AddrControl)
	if err != nil {
		return 0, err
	}
	return regs.Control(v), nil
}

func (d *Device) writeControl(c regs.Control) error {
	return d.writeUserU32(regs.AddrControl, uint32(c))
}

func (d *Device) modifyControl(f func(regs.Control) regs.Control) error {
	v, err := d.readControl()
	if err != nil {
		return err
	}
	return d.writeControl(f(v))
}

func (d *Device) readStatus() (regs.Status, error) {
	v, err := d.readUserU32(regs.AddrStatus)
	if err != nil {
		return 0, err
	}
	return regs.Status(v), nil
}

// writeFifo enqueues data into the AXI-Stream FIFO tunnel a byte at a time
// (the gateway's datapath is configured at 32-bit width, but only the
// low byte of each word matters to the SPI/I2C bridge downstream), then
// kicks off transmission and waits for the TC (transmit complete) flag,
// panicking on TPOE (transmit packet overrun) since that indicates a
// gateware bug that corrupts all subsequent transactions.
func (d *Device) writeFifo(data []byte) error {
	for _, b := range data {
		if err := d.writeUserU32(regs.AddrFifoTDFD, uint32(b)); err != nil {
			return err
		}
	}
	if err := d.writeUserU32(regs.AddrFifoTLR, uint32(len(data))*4); err != nil {
		return err
	}
	if err := d.writeUserU32(regs.AddrFifoISR, 1<<regs.FifoISRTC); err != nil {
		return err
	}
	for {
		v, err := d.readUserU32(regs.AddrFifoISR)
		if err != nil {
			return err
		}
		isr := regs.FifoISR(v)
		if isr.Get(regs.FifoISRTPOE) {
			panic("device: transmit FIFO overflow")
		}
		if isr.Get(regs.FifoISRTC) {
			return nil
		}
	}
}

func (d *Device) writeI2C(addr byte, data []byte) error {
	packet := make([]byte, 0, len(data)+2)
	packet = append(packet, 0xff, addr)
	packet = append(packet, data...)
	if err := d.writeFifo(packet); err != nil {
		return err
	}
	// the I2C engine doesn't use TLAST to detect packet boundaries and runs
	// at 400 kHz; wait for it to finish before releasing the bus. 100%
	// safety factor built into the delay.
	time.Sleep(time.Duration(50*len(data)) * time.Microsecond)
	return nil
}

// writeSPI addresses bus 0 (ADC) or buses 2-5 (PGA 0-3) via the gateway's
// byte-select scheme: the first packet byte is 0xFD-spiBus.
func (d *Device) writeSPI(spiBus byte, data []byte) error {
	packet := make([]byte, 0, len(data)+1)
	packet = append(packet, 0xfd-spiBus)
	packet = append(packet, data...)
	if err := d.writeFifo(packet); err != nil {
		return err
	}
	// the SPI engine doesn't use TLAST either, but runs at 16MHz; this is
	// enough margin for 160 bytes.
	time.Sleep(util.SecsToDuration(10e-6))
	return nil
}

func (d *Device) writePLLRegister(regAddr uint16, value byte) error {
	return d.writeI2C(0b11101000, []byte{
		0x02,
		byte(regAddr >> 8),
		byte(regAddr),
		value,
	})
}

// initPLLRegisters writes each word of a PLL init table, where a 24-bit
// word packs a register address (bits 8-23) and value (bits 0-7), the
// format the PLL init tables are specified in.
func (d *Device) initPLLRegisters(initWords []uint32) error {
	for _, w := range initWords {
		if err := d.writePLLRegister(uint16(w>>8), byte(w)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) writeADCRegister(regAddr byte, value uint16) error {
	return d.writeSPI(regs.SPIBusADC, []byte{
		regAddr,
		byte(value >> 8),
		byte(value),
	})
}

type adcInitPair struct {
	addr  byte
	value uint16
}

func (d *Device) initADCRegisters(pairs []adcInitPair) error {
	for _, p := range pairs {
		if err := d.writeADCRegister(p.addr, p.value); err != nil {
			return err
		}
	}
	return nil
}

// adcChannelPlan is the clkdiv/chnum/chmux/insel tuple enableADCChannels
// derives from an enabled-channel mask. Split out as a pure function so the
// permutation logic can be table-tested without a transport.
type adcChannelPlan struct {
	clkdiv uint16
	chnum  uint16
	chmux  regs.Control
	insel  [4]int
}

// indexFromEnd returns the reverse position (from the end of enabled) of
// the skip-th true entry scanning from the end: skip=0 is the last enabled
// channel, skip=1 the second-to-last, and so on. Channels CH1..CH4 on the
// faceplate are wired to IN4..IN1 on the ADC, so a channel's insel value is
// its reverse position among enabled channels, not its forward index.
func indexFromEnd(enabled [4]bool, skip int) int {
	seen := 0
	for i := len(enabled) - 1; i >= 0; i-- {
		if !enabled[i] {
			continue
		}
		if seen == skip {
			return len(enabled) - 1 - i
		}
		seen++
	}
	panic("device: enabled mask has fewer set channels than requested")
}

func deriveADCChannelPlan(enabled [4]bool) adcChannelPlan {
	count := 0
	for _, e := range enabled {
		if e {
			count++
		}
	}

	var plan adcChannelPlan
	switch count {
	case 1:
		plan.clkdiv, plan.chnum, plan.chmux = 0, 1, 0
	case 2:
		plan.clkdiv, plan.chnum, plan.chmux = 1, 2, regs.Control(1<<regs.ControlChannelMux0)
	case 3, 4:
		plan.clkdiv, plan.chnum, plan.chmux = 2, 4, regs.Control(1<<regs.ControlChannelMux1)
	default:
		panic("device: unsupported channel configuration")
	}

	switch plan.chnum {
	case 1:
		ch1 := indexFromEnd(enabled, 0)
		plan.insel = [4]int{ch1, ch1, ch1, ch1}
	case 2:
		ch1 := indexFromEnd(enabled, 0)
		ch2 := indexFromEnd(enabled, 1)
		// the faceplate channel order in the data is ch1,ch2,ch1,ch2;
		// permuted again below.
		plan.insel = [4]int{ch2, ch2, ch1, ch1}
	case 4:
		// the faceplate channel order in the data is ch1,ch2,ch3,ch4.
		plan.insel = [4]int{3, 2, 1, 0}
	}

	return plan
}

// enableADCChannels reconfigures the HMCAD1520's channel count and clock
// divisor, its input-select permutation, and the FPGA's channel mux, for
// the given enabled-channel mask.
func (d *Device) enableADCChannels(enabled [4]bool) error {
	log.Printf("device: enable_adc_channels(%v)", enabled)

	plan := deriveADCChannelPlan(enabled)

	if err := d.initADCRegisters([]adcInitPair{
		{regs.AdcAddrPower, 0x0200},
		{regs.AdcAddrChnumClkdiv, (plan.clkdiv << 8) | plan.chnum},
		{regs.AdcAddrPower, 0x0000},
		{regs.AdcAddrInsel12, 0x0200<<uint(plan.insel[1]) | 0x0002<<uint(plan.insel[0])},
		{regs.AdcAddrInsel34, 0x0200<<uint(plan.insel[3]) | 0x0002<<uint(plan.insel[2])},
	}); err != nil {
		return err
	}

	return d.modifyControl(func(c regs.Control) regs.Control {
		c = c.Set(regs.ControlChannelMux0, false).Set(regs.ControlChannelMux1, false)
		return c | plan.chmux
	})
}

func (d *Device) writePGACommand(pgaBus byte, command uint16) error {
	return d.writeSPI(pgaBus, []byte{
		0x00,
		byte(command >> 8),
		byte(command),
	})
}

func (d *Device) configurePGA(index int, p params.ChannelParameters) error {
	command := uint16(1<<10) | // always turn off auxiliary output to save power
		p.Filtering.LMH6518Code() |
		p.Amplification.LMH6518Code() |
		p.FineAttenuation.LMH6518Code()
	return d.writePGACommand(regs.SPIBusPGA[index], command)
}

func (d *Device) writeDigipotInput(addr byte, input uint16) error {
	commandData := uint16(addr)<<12 | // device address
		0b00<<10 | // write
		(input & 0x3ff)
	return d.writeI2C(0b0101100, []byte{
		byte(commandData >> 8),
		byte(commandData),
	})
}

func (d *Device) writeTrimDACInput(channel byte, input uint16) error {
	return d.writeI2C(0b1100000, []byte{
		0b01011_00_0 | ((channel & 0b11) << 1),
		byte(input >> 8),
		byte(input),
	})
}

// wiperAddress maps channel index (0-3) to the MCP4432 digipot's per-wiper
// address.
var wiperAddress = [4]byte{0x6, 0x0, 0x1, 0x7}

func (d *Device) configureDigipotTrimDAC(index int, p params.ChannelParameters) error {
	if err := d.writeDigipotInput(wiperAddress[index], p.OffsetMagnitude.MCP4432TCode()); err != nil {
		return err
	}
	return d.writeTrimDACInput(byte(index), uint16(1<<15)|p.OffsetValue.MCP4728Code())
}

func (d *Device) enableDatamover() error {
	return d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlDatamoverHaltN, true).Set(regs.ControlFpgaAcqResetN, true)
	})
}

func (d *Device) disableDatamover() error {
	if err := d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlDatamoverHaltN, false)
	}); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(5e-3))
	return d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlFpgaAcqResetN, false)
	})
}

// Configure resolves params.DeviceParameters into register writes,
// applying them in an electrical-safety-conscious order: PGAs first (their
// auxiliary outputs draw significant current and are disabled as part of
// the PGA command word), then termination/coupling/attenuator, then the
// offset DAC/digipot, then the ADC channel mapping (which requires
// stopping and restarting the data mover around it).
func (d *Device) Configure(p params.DeviceParameters) error {
	log.Printf("device: configure(%+v)", p)

	chOrDefault := func(i int) params.ChannelParameters {
		if p.Channels[i] != nil {
			return *p.Channels[i]
		}
		return params.DefaultChannelParameters()
	}

	for i := range p.Channels {
		if err := d.configurePGA(i, chOrDefault(i)); err != nil {
			return err
		}
	}

	for i := range p.Channels {
		ch := chOrDefault(i)
		if err := d.modifyControl(func(c regs.Control) regs.Control {
			c = c.Set(regs.ChTermination(i), ch.Termination == config.Ohm50)
			c = c.Set(regs.ChCoupling(i), ch.Coupling == config.DC)
			c = c.Set(regs.ChAttenuator(i), ch.CoarseAttenuation == params.CoarseAttenuationX1)
			return c
		}); err != nil {
			return err
		}
	}

	for i := range p.Channels {
		if err := d.configureDigipotTrimDAC(i, chOrDefault(i)); err != nil {
			return err
		}
	}

	// the data mover cannot run without an ADC clock or tolerate glitches
	// on it, so it's stopped around reconfiguring the ADC channel mapping.
	if err := d.disableDatamover(); err != nil {
		return err
	}
	var enabled [4]bool
	for i := range p.Channels {
		enabled[i] = p.Channels[i] != nil
	}
	if err := d.enableADCChannels(enabled); err != nil {
		return err
	}
	return d.enableDatamover()
}

// pllRev4InitWords is the PLL initialization table for hardware revision 4.
var pllRev4InitWords = []uint32{
	0x042308, 0x000301, 0x000402, 0x000521,
	0x000701, 0x010042, 0x010100, 0x010201,
	0x010600, 0x010700, 0x010800, 0x010900,
	0x010A20, 0x010B03, 0x012160, 0x012790,
	0x014100, 0x014200, 0x014300, 0x014400,
	0x0145A0, 0x015300, 0x015450, 0x0155CE,
	0x018000, 0x020080, 0x020105, 0x025080,
	0x025102, 0x04300C, 0x043000,
}

var pllPhaseAlignWords = []uint32{0x010002, 0x010042}

var adcInitTable = []adcInitPair{
	{regs.AdcAddrReset, 0x0001},
	{regs.AdcAddrPower, 0x0200},
	{regs.AdcAddrInvert, 0x007F},
	{regs.AdcAddrFSCntrl, 0x0020},
	{regs.AdcAddrGainCfg, 0x0000},
	{regs.AdcAddrQuadGain, 0x9999},
	{regs.AdcAddrDualGain, 0x0A99},
	{regs.AdcAddrResSel, 0x0000},
	{regs.AdcAddrLVDSPhase, 0x0060},
	{regs.AdcAddrLVDSDrive, 0x0222},
}

// Startup brings the device up from a cold or uncleanly-shutdown state:
// disables the data mover (idempotent recovery if it was already running),
// powers the clock generator and 3V3 rail, programs the PLL and ADC, powers
// the analog frontend's 5V0 rail, and finally calls Configure with the
// default parameters (which also re-enables the data mover).
func (d *Device) Startup() error {
	log.Println("device: startup()")

	if err := d.disableDatamover(); err != nil {
		return err
	}

	if err := d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlClockGenResetN, true).Set(regs.ControlRail3V3Enabled, true)
	}); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(10e-3))

	// the RSTN pin must be asserted once after power-up, for at least 1us.
	if err := d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlClockGenResetN, false)
	}); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(100e-6))

	// software must wait at least 100us after RSTN deasserts before
	// configuring the device.
	if err := d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlClockGenResetN, true)
	}); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(1e-3))

	if err := d.initPLLRegisters(pllRev4InitWords); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(10e-3))

	if err := d.initPLLRegisters(pllPhaseAlignWords); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(10e-3))

	// configure the ADC but leave it powered down, or it will be unhappy
	// about its clock not running yet.
	if err := d.initADCRegisters(adcInitTable); err != nil {
		return err
	}

	// enabling the frontend causes a current spike (PGA aux outputs default
	// on); Configure must follow promptly to disable them.
	if err := d.modifyControl(func(c regs.Control) regs.Control {
		return c.Set(regs.ControlRail5VEnabled, true)
	}); err != nil {
		return err
	}
	time.Sleep(util.SecsToDuration(5e-3))

	return d.Configure(params.DefaultDeviceParameters())
}

// Shutdown halts the data mover and powers down both analog rails.
func (d *Device) Shutdown() error {
	log.Println("device: shutdown()")
	if err := d.disableDatamover(); err != nil {
		return err
	}
	return d.writeControl(0)
}

// StreamData returns a Streamer that reads newly-available samples off the
// device's circular memory.
func (d *Device) StreamData() *Streamer {
	return &Streamer{device: d}
}
