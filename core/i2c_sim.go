//go:build !tinygo

package core

import (
	"errors"
	"sync"
)

var (
	ErrSimNack      = errors.New("i2c sim: address not acknowledged")
	ErrSimUnderflow = errors.New("i2c sim: slave did not supply data")
)

// simController is the modelled state of one DesignWare controller.
type simController struct {
	sda, scl   GPIOPin
	pinsSet    bool
	freq       uint32
	slave      bool
	addr       I2CAddress
	mask       I2CIntr
	raw        I2CIntr
	irqEnabled bool
	rx         []byte
	tx         []byte
	clears     []I2CIntr
}

// SimI2C is a software model of the RP2040 I2C controllers used when the
// firmware core runs under regular Go. It implements I2CSlaveDriver for the
// slave side and offers master-side transfers that raise the same interrupt
// conditions the hardware does.
type SimI2C struct {
	mu   sync.Mutex
	ctl  [I2CSlaveCount]simController
	Fail error // returned by ConfigurePins/Init when set
}

// NewSimI2C creates both controllers in their reset state.
func NewSimI2C() *SimI2C {
	s := &SimI2C{}
	for i := range s.ctl {
		s.ctl[i].mask = IntrMaskReset
	}
	return s
}

func (s *SimI2C) ConfigurePins(bus I2CBusID, sda, scl GPIOPin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	c := &s.ctl[bus]
	c.sda, c.scl, c.pinsSet = sda, scl, true
	return nil
}

func (s *SimI2C) Init(bus I2CBusID, frequencyHz uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	c := &s.ctl[bus]
	c.freq = frequencyHz
	c.raw = 0
	c.rx = c.rx[:0]
	c.tx = c.tx[:0]
	return nil
}

func (s *SimI2C) SetSlaveMode(bus I2CBusID, enable bool, addr I2CAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	c.slave = enable
	if enable {
		c.addr = addr
	}
}

func (s *SimI2C) SetInterruptMask(bus I2CBusID, mask I2CIntr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl[bus].mask = mask
}

func (s *SimI2C) InterruptStatus(bus I2CBusID) I2CIntr {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	return c.raw & c.mask
}

func (s *SimI2C) ClearInterrupt(bus I2CBusID, cond I2CIntr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	c.raw &^= cond
	c.clears = append(c.clears, cond)
}

func (s *SimI2C) ReadByte(bus I2CBusID) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	if len(c.rx) == 0 {
		c.raw |= IntrRxUnder
		return 0
	}
	b := c.rx[0]
	c.rx = c.rx[1:]
	if len(c.rx) == 0 {
		c.raw &^= IntrRxFull
	}
	return b
}

func (s *SimI2C) WriteByte(bus I2CBusID, b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	c.tx = append(c.tx, b)
}

func (s *SimI2C) SetIRQEnabled(bus I2CBusID, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl[bus].irqEnabled = enabled
}

// Raise asserts conditions in the raw status without delivering them.
func (s *SimI2C) Raise(bus I2CBusID, cond I2CIntr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl[bus].raw |= cond
}

// PushRx places bytes in the receive FIFO and asserts RX_FULL.
func (s *SimI2C) PushRx(bus I2CBusID, data ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	c.rx = append(c.rx, data...)
	if len(c.rx) > 0 {
		c.raw |= IntrRxFull
	}
}

// Fire delivers one interrupt for bus if its IRQ is enabled, the same way
// the NVIC would: with other interrupts held off.
func (s *SimI2C) Fire(bus I2CBusID) {
	s.mu.Lock()
	enabled := s.ctl[bus].irqEnabled
	s.mu.Unlock()
	if !enabled {
		return
	}
	state := disableInterrupts()
	defer restoreInterrupts(state)
	I2CSlaveIRQ(bus)
}

// pending reports whether an unmasked condition is asserted.
func (s *SimI2C) pending(bus I2CBusID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	return c.irqEnabled && c.raw&c.mask != 0
}

func (s *SimI2C) raiseAndFire(bus I2CBusID, cond I2CIntr) {
	s.Raise(bus, cond)
	if s.pending(bus) {
		s.Fire(bus)
	}
}

func (s *SimI2C) acks(bus I2CBusID, addr uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	return c.slave && uint16(c.addr) == addr
}

// Transfer runs one master transaction on bus: START, the write phase, a
// repeated START if both phases are present, the read phase and STOP.
func (s *SimI2C) Transfer(bus I2CBusID, addr uint16, w, r []byte) error {
	if !s.acks(bus, addr) {
		return ErrSimNack
	}
	s.raiseAndFire(bus, IntrStartDet)
	for _, b := range w {
		s.PushRx(bus, b)
		if s.pending(bus) {
			s.Fire(bus)
		}
	}
	if len(w) > 0 && len(r) > 0 {
		s.raiseAndFire(bus, IntrStartDet)
	}
	for i := range r {
		b, ok := s.popTx(bus)
		if !ok {
			s.raiseAndFire(bus, IntrRdReq)
			b, ok = s.popTx(bus)
		}
		if !ok {
			s.raiseAndFire(bus, IntrTxAbort|IntrStopDet)
			return ErrSimUnderflow
		}
		r[i] = b
	}
	s.raiseAndFire(bus, IntrStopDet)
	return nil
}

func (s *SimI2C) popTx(bus I2CBusID) (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	if len(c.tx) == 0 {
		return 0, false
	}
	b := c.tx[0]
	c.tx = c.tx[1:]
	return b, true
}

// Master returns a bus-master view of one controller. Its Tx method matches
// the tinygo.org/x/drivers I2C interface.
func (s *SimI2C) Master(bus I2CBusID) *SimMaster {
	return &SimMaster{sim: s, bus: bus}
}

// SimMaster drives transfers against one simulated controller.
type SimMaster struct {
	sim *SimI2C
	bus I2CBusID
}

func (m *SimMaster) Tx(addr uint16, w, r []byte) error {
	return m.sim.Transfer(m.bus, addr, w, r)
}

// SimState is a copy of a controller state for assertions.
type SimState struct {
	SDA, SCL   GPIOPin
	PinsSet    bool
	Freq       uint32
	Slave      bool
	Addr       I2CAddress
	Mask       I2CIntr
	Raw        I2CIntr
	IRQEnabled bool
	Rx, Tx     []byte
	Clears     []I2CIntr
}

// State returns a snapshot of bus.
func (s *SimI2C) State(bus I2CBusID) SimState {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.ctl[bus]
	return SimState{
		SDA: c.sda, SCL: c.scl, PinsSet: c.pinsSet,
		Freq:       c.freq,
		Slave:      c.slave,
		Addr:       c.addr,
		Mask:       c.mask,
		Raw:        c.raw,
		IRQEnabled: c.irqEnabled,
		Rx:         append([]byte(nil), c.rx...),
		Tx:         append([]byte(nil), c.tx...),
		Clears:     append([]I2CIntr(nil), c.clears...),
	}
}

// ResetClears forgets the recorded clear operations.
func (s *SimI2C) ResetClears(bus I2CBusID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl[bus].clears = nil
}
