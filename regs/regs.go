/*Package regs defines the ThunderScope register map: the Control and Status
bitfields of the acquisition core, the AXI-Stream FIFO tunnel used for SPI/I2C
gateway transactions, and the constants tying the device-side circular memory
to the Status register's page counter.

See doc/datamover_register.txt and doc/transfer_counter_register.txt in the
FPGA gateware repository for the authoritative bit assignments; this package
mirrors them.
*/
package regs

import "github.com/oss-instruments/thunderscope/util"

// Register addresses, byte offsets into the BAR-mapped register node.
const (
	AddrControl = 0x00000000
	AddrStatus  = 0x00000008

	AddrFifoISR  = 0x00020000
	AddrFifoIER  = 0x00020004
	AddrFifoTDFR = 0x00020008
	AddrFifoTDFV = 0x0002000c
	AddrFifoTDFD = 0x00020010
	AddrFifoTLR  = 0x00020014
	AddrFifoTDR  = 0x0002002c
)

// MemorySize is the size, in bytes, of the device-side circular memory that
// the data mover writes into and that the Streamer reads back out of.
const MemorySize = 256 * 1024 * 1024

// PageSize is the granularity, in bytes, at which Status.PagesMoved advances.
const PageSize = 4096

// PageBits is the left-shift equivalent to multiplying by PageSize.
const PageBits = 12

// Control is the Control register (offset AddrControl), read/write.
type Control uint32

// Control register bit positions.
const (
	ControlDatamoverHaltN = 0
	ControlFpgaAcqResetN  = 1

	ControlChannelMux0 = 4
	ControlChannelMux1 = 5

	ControlCh1Termination = 12
	ControlCh2Termination = 13
	ControlCh3Termination = 14
	ControlCh4Termination = 15

	ControlCh1Attenuator = 16
	ControlCh2Attenuator = 17
	ControlCh3Attenuator = 18
	ControlCh4Attenuator = 19

	ControlCh1Coupling = 20
	ControlCh2Coupling = 21
	ControlCh3Coupling = 22
	ControlCh4Coupling = 23

	ControlRail3V3Enabled = 24
	ControlClockGenResetN = 25
	ControlRail5VEnabled  = 26
)

// Get reports whether the given bit is set.
func (c Control) Get(bit uint) bool {
	return util.GetBit32(uint32(c), bit)
}

// Set returns a copy of c with the given bit set or cleared.
func (c Control) Set(bit uint, high bool) Control {
	return Control(util.SetBit32(uint32(c), bit, high))
}

// ChTermination returns the bit position of the per-channel termination
// flag for channel index 0-3.
func ChTermination(index int) uint {
	switch index {
	case 0:
		return ControlCh1Termination
	case 1:
		return ControlCh2Termination
	case 2:
		return ControlCh3Termination
	case 3:
		return ControlCh4Termination
	default:
		panic("regs: channel index out of range")
	}
}

// ChAttenuator returns the bit position of the per-channel attenuator flag
// for channel index 0-3.
func ChAttenuator(index int) uint {
	switch index {
	case 0:
		return ControlCh1Attenuator
	case 1:
		return ControlCh2Attenuator
	case 2:
		return ControlCh3Attenuator
	case 3:
		return ControlCh4Attenuator
	default:
		panic("regs: channel index out of range")
	}
}

// ChCoupling returns the bit position of the per-channel coupling flag for
// channel index 0-3.
func ChCoupling(index int) uint {
	switch index {
	case 0:
		return ControlCh1Coupling
	case 1:
		return ControlCh2Coupling
	case 2:
		return ControlCh3Coupling
	case 3:
		return ControlCh4Coupling
	default:
		panic("regs: channel index out of range")
	}
}

// Status is the Status register (offset AddrStatus), read-only.
type Status uint32

// Status register bit positions and field masks.
const (
	StatusFifoOverflow   = 30
	StatusDatamoverError = 31
)

// Get reports whether the given single-bit flag is set.
func (s Status) Get(bit uint) bool {
	return util.GetBit32(uint32(s), bit)
}

// OverflowCycles returns the 14-bit overflow-cycles field, bits 16-29.
func (s Status) OverflowCycles() uint32 {
	return (uint32(s) >> 16) & 0x3FFF
}

// PagesMoved returns the 16-bit pages-moved field, bits 0-15: the count of
// 4 KiB pages the data mover has written to the device-side circular memory
// since the last Control.FpgaAcqResetN deassertion.
func (s Status) PagesMoved() int {
	return int(uint32(s) & 0xFFFF)
}

// Fatal reports whether the status register reflects a FIFO overflow or
// data mover error, a condition that requires the device to be power
// cycled before streaming can continue.
func (s Status) Fatal() bool {
	return s.Get(StatusFifoOverflow) || s.Get(StatusDatamoverError)
}

// FifoISR is the AXI-Stream FIFO Interrupt Status Register (offset
// AddrFifoISR). See Xilinx PG080 for the full bit catalogue; only the bits
// the gateway protocol consumes are named here.
type FifoISR uint32

// FifoISR bit positions relevant to the SPI/I2C gateway protocol.
const (
	FifoISRRFPE  = 19
	FifoISRRFPF  = 20
	FifoISRTFPE  = 21
	FifoISRTFPF  = 22
	FifoISRRRC   = 23
	FifoISRTRC   = 24
	FifoISRTSE   = 25
	FifoISRRC    = 26
	FifoISRTC    = 27 // Transmit Complete
	FifoISRTPOE  = 28 // Transmit Packet Overrun Error
	FifoISRRPUE  = 29
	FifoISRRPORE = 30
	FifoISRRPURE = 31
)

// Get reports whether the given bit is set.
func (f FifoISR) Get(bit uint) bool {
	return util.GetBit32(uint32(f), bit)
}
