//go:build rp2040

package main

import (
	"machine"
	"time"

	"sensorslave/core"
)

func main() {
	// Clear any watchdog state left from before the reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	link := newUSBLink()

	cfg := GetConfig()
	if cfg.Debug {
		InitDebugUART()
	}

	InitClock()
	core.TimerInit()

	core.InitCoreCommands()
	core.InitI2CSlaveCommands()
	core.SetI2CSlaveDriver(NewRPI2CSlaveDriver())

	// All commands are registered; render the dictionary once
	core.GetGlobalDictionary().BuildDictionary()
	core.SetGlobalFramer(link.framer)

	reader, err := newSensorReader()
	if err != nil {
		core.DebugPrintln("[ADC] " + err.Error())
		reader = &core.SensorMux{}
	}
	sensors := core.NewSensorService(core.DefaultMailbox(), reader, cfg.PollInterval)
	sensors.Start()

	if cfg.AutoBind {
		err := core.I2CSlaveInit(cfg.Bus, cfg.Address, core.NewSensorSelectProtocol(core.DefaultMailbox()))
		if err != nil {
			core.DebugPrintln("[I2C] auto-bind failed: " + err.Error())
		}
	}

	go link.readLoop()

	for {
		runOnce(link)
		time.Sleep(10 * time.Microsecond)
	}
}

// runOnce is one pass of the foreground loop. A panic in a command handler
// or sensor read is logged with the trace ring and the link is reset; the
// I2C interrupt keeps serving the last published value meanwhile.
func runOnce(link *usbLink) {
	defer func() {
		if r := recover(); r != nil {
			link.errors++
			core.DumpTraceRing()
			link.reset()
		}
	}()

	UpdateSystemTime()
	link.poll()
	core.ProcessTimers()
}
