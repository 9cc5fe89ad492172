package core

import "sync/atomic"

// Mailbox layout, packed into one 32-bit word so that the interrupt side and
// the foreground side always observe a consistent selection/value pair:
//
//	bits  0-15  pending value
//	bits 16-19  selected sensor
//	bits 20-23  selected bundle
//	bit  24     read required
//	bits 25-31  selection sequence (incremented on every Select)
const (
	mbValueMask    = 0xFFFF
	mbSensorShift  = 16
	mbBundleShift  = 20
	mbNibbleMask   = 0xF
	mbReadRequired = 1 << 24
	mbSeqShift     = 25
	mbSeqMask      = 0x7F
)

// MailboxSnapshot is a consistent copy of the mailbox fields.
type MailboxSnapshot struct {
	Bundle       uint8
	Sensor       uint8
	Value        uint16
	ReadRequired bool
	Seq          uint8
}

// Mailbox passes the selection written by the bus master to the foreground
// task and the published value back. All methods are lock-free and safe to
// call from interrupt context.
type Mailbox struct {
	word atomic.Uint32
}

var defaultMailbox Mailbox

// DefaultMailbox returns the process-wide mailbox. Both controllers share it.
func DefaultMailbox() *Mailbox {
	return &defaultMailbox
}

func unpackMailbox(w uint32) MailboxSnapshot {
	return MailboxSnapshot{
		Bundle:       uint8((w >> mbBundleShift) & mbNibbleMask),
		Sensor:       uint8((w >> mbSensorShift) & mbNibbleMask),
		Value:        uint16(w & mbValueMask),
		ReadRequired: w&mbReadRequired != 0,
		Seq:          uint8((w >> mbSeqShift) & mbSeqMask),
	}
}

// update applies fn with a compare-and-swap loop and returns the new word.
func (m *Mailbox) update(fn func(old uint32) uint32) uint32 {
	for {
		old := m.word.Load()
		next := fn(old)
		if m.word.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Select records a selection byte received from the master: the low nibble
// is the sensor, the high nibble the bundle. The pending value is reset and
// read-required is raised.
func (m *Mailbox) Select(b byte) {
	m.update(func(old uint32) uint32 {
		seq := ((old >> mbSeqShift) + 1) & mbSeqMask
		return seq<<mbSeqShift |
			mbReadRequired |
			uint32((b>>4)&mbNibbleMask)<<mbBundleShift |
			uint32(b&mbNibbleMask)<<mbSensorShift
	})
}

// Snapshot returns all fields from a single load.
func (m *Mailbox) Snapshot() MailboxSnapshot {
	return unpackMailbox(m.word.Load())
}

// ReadRequired reports whether a selection is waiting to be serviced.
func (m *Mailbox) ReadRequired() bool {
	return m.word.Load()&mbReadRequired != 0
}

// SetReadRequired sets or clears the flag and returns the stored value.
func (m *Mailbox) SetReadRequired(read bool) bool {
	w := m.update(func(old uint32) uint32 {
		if read {
			return old | mbReadRequired
		}
		return old &^ mbReadRequired
	})
	return w&mbReadRequired != 0
}

// PendingValue returns the value served to the next read request.
func (m *Mailbox) PendingValue() uint16 {
	return uint16(m.word.Load() & mbValueMask)
}

// SetPendingValue publishes a value and returns the stored value.
func (m *Mailbox) SetPendingValue(v uint16) uint16 {
	w := m.update(func(old uint32) uint32 {
		return old&^mbValueMask | uint32(v)
	})
	return uint16(w & mbValueMask)
}

// Bundle returns the selected bundle id (0-15).
func (m *Mailbox) Bundle() uint8 {
	return m.Snapshot().Bundle
}

// Sensor returns the selected sensor id (0-15).
func (m *Mailbox) Sensor() uint8 {
	return m.Snapshot().Sensor
}

// Complete publishes v and clears read-required in one step, but only if no
// selection arrived since the snapshot with sequence seq was taken.
// It returns false when the selection changed underneath the caller.
func (m *Mailbox) Complete(seq uint8, v uint16) bool {
	for {
		old := m.word.Load()
		if uint8((old>>mbSeqShift)&mbSeqMask) != seq&mbSeqMask {
			return false
		}
		next := old&^(mbValueMask|mbReadRequired) | uint32(v)
		if m.word.CompareAndSwap(old, next) {
			return true
		}
	}
}

// Reset zeroes every field, as at process start.
func (m *Mailbox) Reset() {
	m.word.Store(0)
}

// Foreground accessors on the process-wide mailbox.

// IsReadRequired reports whether the master selected a sensor that has not
// been serviced yet.
func IsReadRequired() bool {
	return defaultMailbox.ReadRequired()
}

// SetReadRequired sets the flag and returns the stored value.
func SetReadRequired(read bool) bool {
	return defaultMailbox.SetReadRequired(read)
}

// SetPendingValue publishes the value served to the next master read and
// returns the stored value.
func SetPendingValue(v uint16) uint16 {
	return defaultMailbox.SetPendingValue(v)
}

// GetSelectedBundle returns the bundle id from the last master write.
func GetSelectedBundle() uint8 {
	return defaultMailbox.Bundle()
}

// GetSelectedSensor returns the sensor id from the last master write.
func GetSelectedSensor() uint8 {
	return defaultMailbox.Sensor()
}
