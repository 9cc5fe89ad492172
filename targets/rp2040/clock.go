//go:build rp2040

package main

import (
	"device/rp"

	"sensorslave/core"
)

// InitClock names the MCU in the dictionary and latches the first time
// value. The RP2040 timer counts microseconds, matching core.TimerFreq.
func InitClock() {
	core.GetGlobalDictionary().SetMCU("rp2040")
	UpdateSystemTime()
}

// hardwareTime returns the low word of the free-running timer. TIMERAWL
// has no latching side effect, unlike TIMELR.
func hardwareTime() uint32 {
	return rp.TIMER.TIMERAWL.Get()
}

// UpdateSystemTime copies the hardware timer into core time. The main loop
// calls it before running timers.
func UpdateSystemTime() {
	core.SetTime(hardwareTime())
}
