package core

// SensorSelectProtocol implements the sensor-select wire protocol:
//
//	master write, 1 byte:  bits 7-4 bundle id, bits 3-0 sensor id
//	master read, 2 bytes:  (value>>4)&0xF, value&0xF
//
// A write resets the pending value and raises read-required so the
// foreground can fetch a fresh reading. Only the low byte of the value is
// served, one nibble per transmitted byte.
type SensorSelectProtocol struct {
	mb *Mailbox
}

// NewSensorSelectProtocol returns a protocol bound to mb. A nil mailbox
// selects DefaultMailbox.
func NewSensorSelectProtocol(mb *Mailbox) *SensorSelectProtocol {
	if mb == nil {
		mb = DefaultMailbox()
	}
	return &SensorSelectProtocol{mb: mb}
}

// Mailbox returns the mailbox the protocol writes to.
func (p *SensorSelectProtocol) Mailbox() *Mailbox {
	return p.mb
}

func (p *SensorSelectProtocol) HandleI2CSlave(ctl *I2CSlaveController, evt I2CSlaveEvent) {
	switch evt {
	case I2CSlaveReceive:
		p.mb.Select(ctl.ReadByte())
	case I2CSlaveRequest:
		v := p.mb.PendingValue()
		ctl.WriteByte(byte((v >> 4) & 0xF)) // MSD first
		ctl.WriteByte(byte(v & 0xF))
	case I2CSlaveFinish:
	}
}
