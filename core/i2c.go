// I2C slave engine
// Binds hardware I2C controllers in slave mode to a protocol handler and
// dispatches controller interrupts to it.
package core

import "sync/atomic"

// I2CSlaveCount is the number of hardware I2C controllers (I2C0, I2C1).
const I2CSlaveCount = 2

// I2CSlaveFreq is the bus frequency programmed by I2CSlaveInit.
const I2CSlaveFreq = 400000

// I2CSlaveEvent is a completed hardware condition passed to the handler.
type I2CSlaveEvent uint8

const (
	// I2CSlaveReceive: the master wrote data, read it with ReadByte.
	I2CSlaveReceive I2CSlaveEvent = iota
	// I2CSlaveRequest: the master is reading, reply with WriteByte.
	// The bus is clock-stretched until the transmit FIFO has data.
	I2CSlaveRequest
	// I2CSlaveFinish: the master sent stop, restart or the transfer aborted.
	I2CSlaveFinish
)

func (e I2CSlaveEvent) String() string {
	switch e {
	case I2CSlaveReceive:
		return "RECEIVE"
	case I2CSlaveRequest:
		return "REQUEST"
	case I2CSlaveFinish:
		return "FINISH"
	}
	return "UNKNOWN"
}

// I2CSlaveController is the handle passed to handlers; it gives access to
// the byte queues of one controller.
type I2CSlaveController struct {
	Bus I2CBusID
	drv I2CSlaveDriver
}

// ReadByte pops one byte from the controller receive FIFO.
func (c *I2CSlaveController) ReadByte() byte {
	return c.drv.ReadByte(c.Bus)
}

// WriteByte pushes one byte into the controller transmit FIFO.
func (c *I2CSlaveController) WriteByte(b byte) {
	c.drv.WriteByte(c.Bus, b)
}

// I2CSlaveHandler reacts to slave events. It runs in interrupt context and
// must not block.
type I2CSlaveHandler interface {
	HandleI2CSlave(ctl *I2CSlaveController, evt I2CSlaveEvent)
}

// I2CSlaveHandlerFunc adapts a plain function to I2CSlaveHandler.
type I2CSlaveHandlerFunc func(ctl *I2CSlaveController, evt I2CSlaveEvent)

func (f I2CSlaveHandlerFunc) HandleI2CSlave(ctl *I2CSlaveController, evt I2CSlaveEvent) {
	f(ctl, evt)
}

// I2CSlaveStats counts dispatched events per controller.
type I2CSlaveStats struct {
	Receives atomic.Uint32
	Requests atomic.Uint32
	Finishes atomic.Uint32
	Spurious atomic.Uint32
}

func (s *I2CSlaveStats) reset() {
	s.Receives.Store(0)
	s.Requests.Store(0)
	s.Finishes.Store(0)
	s.Spurious.Store(0)
}

// i2cSlave is one registry slot. A slot is either fully unbound
// (ctl == nil, handler == nil, transferInProgress == false) or fully bound.
type i2cSlave struct {
	ctl                *I2CSlaveController
	handler            I2CSlaveHandler
	transferInProgress bool
	stats              I2CSlaveStats
}

// i2cSlaveIntrAction is one row of the dispatch table.
type i2cSlaveIntrAction struct {
	cond  I2CIntr
	clear bool // clear through the dedicated IC_CLR_* register
	event I2CSlaveEvent
}

// i2cSlaveIntrTable is processed top to bottom on every interrupt. Abort,
// start and stop come first so a stale transfer is finished before a new
// receive or request is handled. RX_FULL has no clear register; draining the
// FIFO deasserts it.
var i2cSlaveIntrTable = [...]i2cSlaveIntrAction{
	{cond: IntrTxAbort, clear: true, event: I2CSlaveFinish},
	{cond: IntrStartDet, clear: true, event: I2CSlaveFinish},
	{cond: IntrStopDet, clear: true, event: I2CSlaveFinish},
	{cond: IntrRxFull, clear: false, event: I2CSlaveReceive},
	{cond: IntrRdReq, clear: true, event: I2CSlaveRequest},
}

// i2cSlavePins holds the fixed SDA/SCL pair per controller.
var i2cSlavePins = [I2CSlaveCount][2]GPIOPin{
	{4, 5}, // I2C0: SDA=GP4, SCL=GP5
	{6, 7}, // I2C1: SDA=GP6, SCL=GP7
}

var (
	i2cSlaves           [I2CSlaveCount]i2cSlave
	i2cSlaveControllers [I2CSlaveCount]I2CSlaveController
)

// Contract violation messages
const (
	errSlaveBadBus     = "i2c slave: invalid bus"
	errSlaveNilHandler = "i2c slave: nil handler"
	errSlaveBound      = "i2c slave: bus already bound"
	errSlaveNotBound   = "i2c slave: bus not bound"
)

// I2CSlavePins returns the SDA and SCL pins used for a controller.
func I2CSlavePins(bus I2CBusID) (sda, scl GPIOPin) {
	if bus >= I2CSlaveCount {
		panic(errSlaveBadBus)
	}
	return i2cSlavePins[bus][0], i2cSlavePins[bus][1]
}

// I2CSlaveInit configures controller bus as an I2C slave at addr and routes
// its events to handler. The bus must not already be bound; call
// I2CSlaveDeinit first. Invalid arguments panic. Hardware errors from pin or
// controller setup are returned before any state is touched.
func I2CSlaveInit(bus I2CBusID, addr I2CAddress, handler I2CSlaveHandler) error {
	if bus >= I2CSlaveCount {
		panic(errSlaveBadBus)
	}
	if handler == nil {
		panic(errSlaveNilHandler)
	}
	slave := &i2cSlaves[bus]
	if slave.ctl != nil {
		panic(errSlaveBound)
	}

	drv := MustI2CSlave()
	sda, scl := I2CSlavePins(bus)
	if err := drv.ConfigurePins(bus, sda, scl); err != nil {
		return err
	}
	if err := drv.Init(bus, I2CSlaveFreq); err != nil {
		return err
	}

	ctl := &i2cSlaveControllers[bus]
	ctl.Bus = bus
	ctl.drv = drv

	state := disableInterrupts()
	slave.ctl = ctl
	slave.handler = handler
	slave.transferInProgress = false
	slave.stats.reset()
	restoreInterrupts(state)

	// Clock stretching after RD_REQ is automatic while the TX FIFO is empty.
	drv.SetSlaveMode(bus, true, addr&0x7F)
	drv.SetInterruptMask(bus, IntrMaskSlave)
	drv.SetIRQEnabled(bus, true)

	DebugPrintln("[I2C] slave bus=" + itoa(int(bus)) + " addr=" + itoa(int(addr&0x7F)))
	return nil
}

// I2CSlaveDeinit detaches controller bus. The bus must be bound. The shared
// mailbox is left untouched.
func I2CSlaveDeinit(bus I2CBusID) {
	if bus >= I2CSlaveCount {
		panic(errSlaveBadBus)
	}
	slave := &i2cSlaves[bus]
	if slave.ctl == nil || slave.ctl.Bus != bus {
		panic(errSlaveNotBound)
	}
	drv := slave.ctl.drv

	drv.SetIRQEnabled(bus, false)

	state := disableInterrupts()
	slave.ctl = nil
	slave.handler = nil
	slave.transferInProgress = false
	restoreInterrupts(state)

	drv.SetInterruptMask(bus, IntrMaskReset)
	drv.SetSlaveMode(bus, false, 0)

	DebugPrintln("[I2C] slave bus=" + itoa(int(bus)) + " released")
}

// I2CSlaveBound reports whether bus currently has a handler.
func I2CSlaveBound(bus I2CBusID) bool {
	if bus >= I2CSlaveCount {
		return false
	}
	return i2cSlaves[bus].ctl != nil
}

// I2CSlaveBoundMask returns bit n set for every bound controller n.
func I2CSlaveBoundMask() uint8 {
	var mask uint8
	for i := range i2cSlaves {
		if i2cSlaves[i].ctl != nil {
			mask |= 1 << i
		}
	}
	return mask
}

// I2CSlaveTransferActive reports whether a receive/request on bus is still
// waiting for its finishing condition.
func I2CSlaveTransferActive(bus I2CBusID) bool {
	if bus >= I2CSlaveCount {
		return false
	}
	return i2cSlaves[bus].transferInProgress
}

// GetI2CSlaveStats returns the event counters for bus.
func GetI2CSlaveStats(bus I2CBusID) *I2CSlaveStats {
	if bus >= I2CSlaveCount {
		panic(errSlaveBadBus)
	}
	return &i2cSlaves[bus].stats
}

// I2CSlaveIRQ is the interrupt entry point for controller bus. Targets call
// it from the IRQ handler they install in SetIRQEnabled.
func I2CSlaveIRQ(bus I2CBusID) {
	slave := &i2cSlaves[bus]
	ctl := slave.ctl
	if ctl == nil || slave.handler == nil {
		panic(errSlaveNotBound)
	}
	drv := ctl.drv

	status := drv.InterruptStatus(bus)
	if status == 0 {
		slave.stats.Spurious.Add(1)
		return
	}

	for i := range i2cSlaveIntrTable {
		act := &i2cSlaveIntrTable[i]
		if status&act.cond == 0 {
			continue
		}
		if act.clear {
			drv.ClearInterrupt(bus, act.cond)
		}
		if act.event == I2CSlaveFinish {
			slave.finishTransfer()
			continue
		}
		slave.transferInProgress = true
		if act.event == I2CSlaveReceive {
			slave.stats.Receives.Add(1)
		} else {
			slave.stats.Requests.Add(1)
		}
		RecordSlaveEvent(act.event, bus, uint32(status))
		slave.handler.HandleI2CSlave(ctl, act.event)
	}
}

// finishTransfer delivers FINISH once for the transfer in progress.
func (s *i2cSlave) finishTransfer() {
	if !s.transferInProgress {
		return
	}
	s.stats.Finishes.Add(1)
	RecordSlaveEvent(I2CSlaveFinish, s.ctl.Bus, 0)
	s.handler.HandleI2CSlave(s.ctl, I2CSlaveFinish)
	s.transferInProgress = false
}
