package core

// I2CBusID identifies a specific I2C controller (I2C0 or I2C1).
type I2CBusID uint8

// I2CAddress is a 7-bit I2C device address.
type I2CAddress uint8

// I2CIntr is a bitfield laid out like the DesignWare IC_INTR_STAT / IC_INTR_MASK registers.
type I2CIntr uint32

// Interrupt status / mask bits (RP2040 datasheet, IC_INTR_STAT).
const (
	IntrRxUnder   I2CIntr = 1 << 0
	IntrRxOver    I2CIntr = 1 << 1
	IntrRxFull    I2CIntr = 1 << 2
	IntrTxOver    I2CIntr = 1 << 3
	IntrTxEmpty   I2CIntr = 1 << 4
	IntrRdReq     I2CIntr = 1 << 5
	IntrTxAbort   I2CIntr = 1 << 6
	IntrRxDone    I2CIntr = 1 << 7
	IntrActivity  I2CIntr = 1 << 8
	IntrStopDet   I2CIntr = 1 << 9
	IntrStartDet  I2CIntr = 1 << 10
	IntrGenCall   I2CIntr = 1 << 11
	IntrRestartDt I2CIntr = 1 << 12

	// IntrMaskReset is the IC_INTR_MASK value after hardware reset.
	IntrMaskReset I2CIntr = 0x8FF

	// IntrMaskSlave are the sources unmasked while a controller runs in slave mode.
	IntrMaskSlave = IntrRxFull | IntrRdReq | IntrTxAbort | IntrStopDet | IntrStartDet
)

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// I2CSlaveDriver is the abstract hardware interface the slave engine uses.
// Every method must complete in bounded time; Status, Clear, ReadByte and
// WriteByte are called from interrupt context.
type I2CSlaveDriver interface {
	// ConfigurePins switches sda/scl to the I2C function with pull-ups enabled.
	ConfigurePins(bus I2CBusID, sda, scl GPIOPin) error

	// Init resets the controller and programs the bus frequency.
	Init(bus I2CBusID, frequencyHz uint32) error

	// SetSlaveMode enables (addr is the 7-bit slave address) or disables slave mode.
	SetSlaveMode(bus I2CBusID, enable bool, addr I2CAddress)

	// SetInterruptMask writes IC_INTR_MASK.
	SetInterruptMask(bus I2CBusID, mask I2CIntr)

	// InterruptStatus reads IC_INTR_STAT.
	InterruptStatus(bus I2CBusID) I2CIntr

	// ClearInterrupt clears a single condition through its IC_CLR_* register.
	ClearInterrupt(bus I2CBusID, cond I2CIntr)

	// ReadByte pops one byte from the receive FIFO.
	ReadByte(bus I2CBusID) byte

	// WriteByte pushes one byte into the transmit FIFO.
	WriteByte(bus I2CBusID, b byte)

	// SetIRQEnabled installs and enables (or disables and removes) the
	// dispatcher as the interrupt entry point for the bus IRQ line.
	SetIRQEnabled(bus I2CBusID, enabled bool)
}

// Global singleton used by core code.
var i2cSlaveDriver I2CSlaveDriver

// SetI2CSlaveDriver is called by target-specific code to register its driver.
func SetI2CSlaveDriver(d I2CSlaveDriver) {
	i2cSlaveDriver = d
}

// MustI2CSlave returns the configured driver or panics if missing.
func MustI2CSlave() I2CSlaveDriver {
	if i2cSlaveDriver == nil {
		panic("I2C slave driver not configured")
	}
	return i2cSlaveDriver
}
