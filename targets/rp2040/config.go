//go:build rp2040

package main

import "sensorslave/core"

// SlaveConfig selects what is bound at boot. The host can bind and release
// buses at any time with i2c_slave_init / i2c_slave_deinit.
type SlaveConfig struct {
	// AutoBind binds Bus at Address before the host connects
	AutoBind bool
	Bus      core.I2CBusID
	Address  core.I2CAddress

	// PollInterval is the foreground service period in timer ticks
	PollInterval uint32

	// Debug sends DebugPrintln output to UART0
	Debug bool
}

// GetConfig returns the boot configuration
func GetConfig() SlaveConfig {
	return SlaveConfig{
		AutoBind:     true,
		Bus:          0,
		Address:      0x42,
		PollInterval: core.TimerFromUS(500),
	}
}
