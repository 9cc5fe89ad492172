package serial

import (
	"fmt"

	"github.com/tarm/serial"
)

// NativePort is an OS serial device opened through tarm/serial.
type NativePort struct {
	*serial.Port
	device string
}

// Open opens cfg.Device.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return &NativePort{Port: p, device: cfg.Device}, nil
}

func (p *NativePort) String() string {
	return p.device
}
