package regs

// HMCAD1520 ADC register addresses, written over the SPI gateway
// (SPIBusADC) as an 8-bit address followed by a 16-bit big-endian value.
const (
	AdcAddrReset       = 0x00
	AdcAddrPower       = 0x0F
	AdcAddrChnumClkdiv = 0x30
	AdcAddrInsel12     = 0x31
	AdcAddrInsel34     = 0x32
	AdcAddrInvert      = 0x0D
	AdcAddrFSCntrl     = 0x55
	AdcAddrGainCfg     = 0x2B
	AdcAddrQuadGain    = 0x2A
	AdcAddrDualGain    = 0x29
	AdcAddrResSel      = 0x70
	AdcAddrLVDSPhase   = 0x3A
	AdcAddrLVDSDrive   = 0x3B
)

// SPI bus selectors for the FIFO gateway's byte-select scheme: bus b is
// addressed by writing 0xFD-b as the first packet byte.
const (
	SPIBusADC = 0
)

// SPIBusPGA maps channel index (0-3) to the PGA's SPI bus selector.
var SPIBusPGA = [4]byte{2, 3, 4, 5}
