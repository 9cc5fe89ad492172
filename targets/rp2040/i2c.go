//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"

	"sensorslave/core"
)

// IC_CON bits (DesignWare I2C)
const (
	icConMasterMode        = 1 << 0
	icConSpeedFast         = 2 << 1
	icConSpeedMask         = 3 << 1
	icConRestartEn         = 1 << 5
	icConSlaveDisable      = 1 << 6
	icConStopDetIfAddr     = 1 << 7
	icConRxFifoFullHoldCtl = 1 << 9
)

// RPI2CSlaveDriver implements core.I2CSlaveDriver on the RP2040 I2C
// controllers. Interrupt routing goes through runtime/interrupt.
type RPI2CSlaveDriver struct {
	buses [core.I2CSlaveCount]*machine.I2C
	intr  [core.I2CSlaveCount]interrupt.Interrupt
}

// NewRPI2CSlaveDriver constructs the driver and registers both IRQ
// handlers. The handlers stay disabled until SetIRQEnabled.
func NewRPI2CSlaveDriver() *RPI2CSlaveDriver {
	d := &RPI2CSlaveDriver{
		buses: [core.I2CSlaveCount]*machine.I2C{machine.I2C0, machine.I2C1},
	}
	// interrupt.New needs a constant IRQ number
	d.intr[0] = interrupt.New(rp.IRQ_I2C0_IRQ, func(interrupt.Interrupt) {
		core.I2CSlaveIRQ(0)
	})
	d.intr[1] = interrupt.New(rp.IRQ_I2C1_IRQ, func(interrupt.Interrupt) {
		core.I2CSlaveIRQ(1)
	})
	return d
}

func (d *RPI2CSlaveDriver) regs(bus core.I2CBusID) *rp.I2C0_Type {
	return d.buses[bus].Bus
}

// ConfigurePins routes sda/scl to the I2C function with pull-ups.
func (d *RPI2CSlaveDriver) ConfigurePins(bus core.I2CBusID, sda, scl core.GPIOPin) error {
	if bus >= core.I2CSlaveCount {
		return errors.New("unsupported I2C bus ID")
	}
	machine.Pin(sda).Configure(machine.PinConfig{Mode: machine.PinI2C})
	machine.Pin(scl).Configure(machine.PinConfig{Mode: machine.PinI2C})
	return nil
}

// Init resets the controller and programs the bus timing.
func (d *RPI2CSlaveDriver) Init(bus core.I2CBusID, frequencyHz uint32) error {
	i2c := d.buses[bus]
	sda, scl := core.I2CSlavePins(bus)
	err := i2c.Configure(machine.I2CConfig{
		Frequency: frequencyHz,
		SDA:       machine.Pin(sda),
		SCL:       machine.Pin(scl),
	})
	if err != nil {
		return err
	}
	// Configure leaves every interrupt source masked in; start quiet.
	i2c.Bus.IC_INTR_MASK.Set(0)
	return nil
}

// SetSlaveMode switches between slave at addr and master. The controller
// must be disabled while IC_CON and IC_SAR change.
func (d *RPI2CSlaveDriver) SetSlaveMode(bus core.I2CBusID, enable bool, addr core.I2CAddress) {
	r := d.regs(bus)
	r.IC_ENABLE.Set(0)
	for r.IC_ENABLE_STATUS.Get()&1 != 0 {
	}
	con := r.IC_CON.Get()
	if enable {
		con &^= icConMasterMode | icConSlaveDisable | icConSpeedMask
		con |= icConRxFifoFullHoldCtl | icConSpeedFast | icConStopDetIfAddr
		r.IC_SAR.Set(uint32(addr & 0x7F))
	} else {
		con &^= icConRxFifoFullHoldCtl | icConStopDetIfAddr
		con |= icConMasterMode | icConSlaveDisable | icConRestartEn
	}
	r.IC_CON.Set(con)
	r.IC_ENABLE.Set(1)
}

func (d *RPI2CSlaveDriver) SetInterruptMask(bus core.I2CBusID, mask core.I2CIntr) {
	d.regs(bus).IC_INTR_MASK.Set(uint32(mask))
}

func (d *RPI2CSlaveDriver) InterruptStatus(bus core.I2CBusID) core.I2CIntr {
	return core.I2CIntr(d.regs(bus).IC_INTR_STAT.Get())
}

// ClearInterrupt reads the dedicated clear register of each condition.
func (d *RPI2CSlaveDriver) ClearInterrupt(bus core.I2CBusID, cond core.I2CIntr) {
	r := d.regs(bus)
	if cond&core.IntrTxAbort != 0 {
		r.IC_CLR_TX_ABRT.Get()
	}
	if cond&core.IntrStartDet != 0 {
		r.IC_CLR_START_DET.Get()
	}
	if cond&core.IntrStopDet != 0 {
		r.IC_CLR_STOP_DET.Get()
	}
	if cond&core.IntrRdReq != 0 {
		r.IC_CLR_RD_REQ.Get()
	}
	if cond&core.IntrRxOver != 0 {
		r.IC_CLR_RX_OVER.Get()
	}
	if cond&core.IntrTxOver != 0 {
		r.IC_CLR_TX_OVER.Get()
	}
}

func (d *RPI2CSlaveDriver) ReadByte(bus core.I2CBusID) byte {
	return byte(d.regs(bus).IC_DATA_CMD.Get())
}

// WriteByte queues b for the master. CMD bit 8 stays 0 (write).
func (d *RPI2CSlaveDriver) WriteByte(bus core.I2CBusID, b byte) {
	d.regs(bus).IC_DATA_CMD.Set(uint32(b))
}

func (d *RPI2CSlaveDriver) SetIRQEnabled(bus core.I2CBusID, enabled bool) {
	if enabled {
		d.intr[bus].Enable()
	} else {
		d.intr[bus].Disable()
	}
}
