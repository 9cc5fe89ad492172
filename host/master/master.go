// Package master is the bus-master side of the sensor-select protocol.
//
// The master writes one selection byte (bundle in the high nibble, sensor in
// the low nibble), gives the slave time to take the reading, then reads two
// bytes that each carry one hex digit of the value, most significant first.
package master

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"tinygo.org/x/drivers"
)

const (
	DefaultAddress = 0x42

	// DefaultSettle covers one poll interval of the slave foreground task
	// plus a sensor read.
	DefaultSettle = 5 * time.Millisecond

	maxOpsPerSec = 500
)

var (
	ErrBadSelection = errors.New("bundle and sensor must be 0-15")
	ErrBadReply     = errors.New("slave reply is not two hex digits")
)

// Device is a sensorslave seen from the bus master.
type Device struct {
	mu      sync.Mutex
	bus     drivers.I2C
	addr    uint16
	limiter *rate.Limiter
	settle  func(ctx context.Context) error
}

// Config configures a Device.
type Config struct {
	Address uint8
	Settle  time.Duration
	// OpsPerSec limits bus transactions; 0 uses the default.
	OpsPerSec int
	// SettleFunc replaces the sleep between selection and read.
	SettleFunc func(ctx context.Context) error
}

// New creates a driver on a configured I2C bus.
func New(bus drivers.I2C) *Device {
	d := &Device{bus: bus}
	d.Configure(Config{})
	return d
}

func (d *Device) Configure(c Config) {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Settle == 0 {
		c.Settle = DefaultSettle
	}
	if c.OpsPerSec == 0 {
		c.OpsPerSec = maxOpsPerSec
	}
	d.addr = uint16(c.Address)
	d.limiter = rate.NewLimiter(rate.Limit(c.OpsPerSec), 10)
	d.settle = c.SettleFunc
	if d.settle == nil {
		settle := c.Settle
		d.settle = func(ctx context.Context) error {
			return sleep(ctx, settle)
		}
	}
}

// Address returns the 7-bit slave address.
func (d *Device) Address() uint16 {
	return d.addr
}

func sleep(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectionByte packs a bundle and sensor id.
func SelectionByte(bundle, sensor uint8) (byte, error) {
	if bundle > 0xF || sensor > 0xF {
		return 0, ErrBadSelection
	}
	return bundle<<4 | sensor, nil
}

// DecodeReply joins the two hex-digit bytes of a reply.
func DecodeReply(buf [2]byte) (uint8, error) {
	if buf[0] > 0xF || buf[1] > 0xF {
		return 0, fmt.Errorf("%w: % x", ErrBadReply, buf[:])
	}
	return buf[0]<<4 | buf[1], nil
}

// Select writes the selection byte.
func (d *Device) Select(ctx context.Context, bundle, sensor uint8) error {
	sel, err := SelectionByte(bundle, sensor)
	if err != nil {
		return err
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := [1]byte{sel}
	if err := d.bus.Tx(d.addr, buf[:], nil); err != nil {
		return fmt.Errorf("select %d/%d at 0x%02x: %w", bundle, sensor, d.addr, err)
	}
	return nil
}

// Read reads the value the slave currently publishes. Only the low 8 bits
// of the slave value cross the bus.
func (d *Device) Read(ctx context.Context) (uint8, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf [2]byte
	if err := d.bus.Tx(d.addr, nil, buf[:]); err != nil {
		return 0, fmt.Errorf("read at 0x%02x: %w", d.addr, err)
	}
	return DecodeReply(buf)
}

// Query selects a sensor, waits for the slave to service it and reads the
// value.
func (d *Device) Query(ctx context.Context, bundle, sensor uint8) (uint8, error) {
	if err := d.Select(ctx, bundle, sensor); err != nil {
		return 0, err
	}
	if err := d.settle(ctx); err != nil {
		return 0, err
	}
	return d.Read(ctx)
}

// Reading is one result of Scan.
type Reading struct {
	Bundle uint8
	Sensor uint8
	Value  uint8
	Err    error
}

// Scan queries sensors 0..count-1 of bundle in order.
func (d *Device) Scan(ctx context.Context, bundle, count uint8) ([]Reading, error) {
	if count > 0x10 {
		return nil, ErrBadSelection
	}
	out := make([]Reading, 0, count)
	for s := uint8(0); s < count; s++ {
		v, err := d.Query(ctx, bundle, s)
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, Reading{Bundle: bundle, Sensor: s, Value: v, Err: err})
	}
	return out, nil
}
