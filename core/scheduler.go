package core

// Timer is a foreground task run by ProcessTimers once WakeTime is reached.
// Handler returns SF_RESCHEDULE after moving WakeTime forward, or SF_DONE.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	// timerList is sorted by WakeTime, earliest first.
	timerList   *Timer
	currentTime uint32
)

// timerBefore compares wake times across 32-bit clock wraparound.
func timerBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// ScheduleTimer queues t. Timers with equal wake times run in the order
// they were scheduled.
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	pp := &timerList
	for *pp != nil && !timerBefore(t.WakeTime, (*pp).WakeTime) {
		pp = &(*pp).Next
	}
	t.Next = *pp
	*pp = t
}

// CancelTimer removes t if it is queued.
func CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for pp := &timerList; *pp != nil; pp = &(*pp).Next {
		if *pp == t {
			*pp = t.Next
			t.Next = nil
			return
		}
	}
}

func popDueTimer() *Timer {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	t := timerList
	if t == nil || timerBefore(currentTime, t.WakeTime) {
		return nil
	}
	timerList = t.Next
	t.Next = nil
	return t
}

// TimerDispatch runs due timers. Handlers run outside the critical section
// so a slow sensor read never holds off the I2C interrupt.
func TimerDispatch() {
	for t := popDueTimer(); t != nil; t = popDueTimer() {
		if t.Handler(t) == SF_RESCHEDULE {
			ScheduleTimer(t)
		}
	}
}
