package mcu

import (
	"context"
	"fmt"
)

// SlaveStatus mirrors the i2c_slave_status response
type SlaveStatus struct {
	BusMask      uint8
	ReadRequired bool
	Bundle       uint8
	Sensor       uint8
	Value        uint16
	Seq          uint8
}

// Bound reports whether bus is bound
func (s SlaveStatus) Bound(bus uint8) bool {
	return s.BusMask&(1<<bus) != 0
}

func (s SlaveStatus) String() string {
	return fmt.Sprintf("buses=%02b read_required=%t bundle=%d sensor=%d value=0x%02x seq=%d",
		s.BusMask, s.ReadRequired, s.Bundle, s.Sensor, s.Value, s.Seq)
}

func statusFrom(msg *Message) SlaveStatus {
	return SlaveStatus{
		BusMask:      uint8(msg.Get("bus_mask")),
		ReadRequired: msg.Get("read_required") != 0,
		Bundle:       uint8(msg.Get("bundle")),
		Sensor:       uint8(msg.Get("sensor")),
		Value:        uint16(msg.Get("value")),
		Seq:          uint8(msg.Get("seq")),
	}
}

// TraceEntry is one record of the firmware trace ring
type TraceEntry struct {
	Type   uint8
	Bus    uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

// BindSlave binds bus to the sensor-select protocol at addr. The firmware
// does not answer a rejected bind, so a bad bus or a bus already bound
// ends in a context error.
func (m *MCU) BindSlave(ctx context.Context, bus, addr uint8) (SlaveStatus, error) {
	msg, err := m.Call(ctx, "i2c_slave_init", "i2c_slave_status", uint32(bus), uint32(addr))
	if err != nil {
		return SlaveStatus{}, fmt.Errorf("bind bus %d: %w", bus, err)
	}
	return statusFrom(msg), nil
}

// UnbindSlave releases bus
func (m *MCU) UnbindSlave(ctx context.Context, bus uint8) (SlaveStatus, error) {
	msg, err := m.Call(ctx, "i2c_slave_deinit", "i2c_slave_status", uint32(bus))
	if err != nil {
		return SlaveStatus{}, fmt.Errorf("unbind bus %d: %w", bus, err)
	}
	return statusFrom(msg), nil
}

// Status reads the bound buses and the mailbox in one response
func (m *MCU) Status(ctx context.Context) (SlaveStatus, error) {
	msg, err := m.Call(ctx, "i2c_slave_get_status", "i2c_slave_status")
	if err != nil {
		return SlaveStatus{}, err
	}
	return statusFrom(msg), nil
}

// ReadRequired reports whether a selection is waiting to be serviced
func (m *MCU) ReadRequired(ctx context.Context) (bool, error) {
	msg, err := m.Call(ctx, "i2c_slave_is_read_required", "i2c_slave_read_required")
	if err != nil {
		return false, err
	}
	return msg.Get("read_required") != 0, nil
}

// SetReadRequired sets the flag and returns the stored value
func (m *MCU) SetReadRequired(ctx context.Context, read bool) (bool, error) {
	v := uint32(0)
	if read {
		v = 1
	}
	msg, err := m.Call(ctx, "i2c_slave_set_read_required", "i2c_slave_read_required", v)
	if err != nil {
		return false, err
	}
	return msg.Get("read_required") != 0, nil
}

// SetValue publishes the value served to the next master read
func (m *MCU) SetValue(ctx context.Context, value uint16) (uint16, error) {
	msg, err := m.Call(ctx, "i2c_slave_set_value", "i2c_slave_value", uint32(value))
	if err != nil {
		return 0, err
	}
	return uint16(msg.Get("value")), nil
}

// SelectedBundle returns the bundle id of the last master write
func (m *MCU) SelectedBundle(ctx context.Context) (uint8, error) {
	msg, err := m.Call(ctx, "i2c_slave_get_bundle", "i2c_slave_bundle")
	if err != nil {
		return 0, err
	}
	return uint8(msg.Get("bundle")), nil
}

// SelectedSensor returns the sensor id of the last master write
func (m *MCU) SelectedSensor(ctx context.Context) (uint8, error) {
	msg, err := m.Call(ctx, "i2c_slave_get_sensor", "i2c_slave_sensor")
	if err != nil {
		return 0, err
	}
	return uint8(msg.Get("sensor")), nil
}

// DumpTrace returns the firmware trace ring, oldest first
func (m *MCU) DumpTrace(ctx context.Context) ([]TraceEntry, error) {
	msgs, err := m.collect(ctx, "i2c_slave_dump_trace", "i2c_slave_trace")
	if err != nil {
		return nil, err
	}
	out := make([]TraceEntry, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, TraceEntry{
			Type:   uint8(msg.Get("type")),
			Bus:    uint8(msg.Get("bus")),
			Clock:  msg.Get("clock"),
			Value1: msg.Get("v1"),
			Value2: msg.Get("v2"),
		})
	}
	return out, nil
}
