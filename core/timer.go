package core

import "sync/atomic"

// TimerFreq is the rate of the RP2040 microsecond timer.
const TimerFreq = 1000000

var (
	// now is the foreground notion of time. Targets copy the hardware
	// counter into it from the main loop; tests set it directly.
	now      atomic.Uint32
	bootTime uint32
)

// GetTime returns the current time in timer ticks.
func GetTime() uint32 {
	return now.Load()
}

// SetTime updates the current time.
func SetTime(ticks uint32) {
	now.Store(ticks)
}

// GetUptime returns the ticks elapsed since TimerInit. It wraps after about
// 71 minutes.
func GetUptime() uint32 {
	return GetTime() - bootTime
}

func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerInit marks the boot time for GetUptime.
func TimerInit() {
	bootTime = GetTime()
}

// ProcessTimers latches the current time and runs every timer due at it.
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
