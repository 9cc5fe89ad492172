// Package serial opens the USB CDC link to the sensorslave firmware.
package serial

import (
	"io"
	"time"
)

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Port is the byte stream to the firmware. Tests substitute an in-process
// pipe for the tarm/serial port.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Config selects the device and line settings.
type Config struct {
	Device string // /dev/ttyACM0, COM3, ...
	Baud   int    // ignored by USB CDC, used by UART bridges

	// ReadTimeout bounds a single Read; a timeout returns 0, nil.
	// Zero blocks until data arrives.
	ReadTimeout time.Duration
}

// DefaultConfig returns the settings used for the firmware link.
func DefaultConfig(device string) *Config {
	return &Config{Device: device, Baud: DefaultBaud, ReadTimeout: DefaultReadTimeout}
}
