package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one slave-engine event for post-mortem analysis
type TraceEvent struct {
	EventType uint8  // Event type code
	Bus       uint8  // I2C controller
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtReceive     = 1 // RECEIVE dispatched (v1 = status snapshot)
	EvtRequest     = 2 // REQUEST dispatched (v1 = status snapshot)
	EvtFinish      = 3 // FINISH dispatched
	EvtPollService = 4 // Foreground serviced a selection (v1 = selection, v2 = value)
	EvtPollStale   = 5 // Selection changed while the reading was taken
	EvtPollError   = 6 // Sensor read failed (v1 = selection)
)

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Trace ring buffer. Written from interrupt context, never blocks.
	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8
	traceEnabled  bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Not for interrupt context; use RecordSlaveEvent there.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled || debugChan == nil {
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordTrace captures an event in the ring buffer
func RecordTrace(eventType, bus uint8, value1, value2 uint32) {
	if !traceEnabled {
		return
	}
	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		EventType: eventType,
		Bus:       bus,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
	traceRingHead = (idx + 1) % TraceRingSize
}

// RecordSlaveEvent traces a dispatched slave event.
func RecordSlaveEvent(evt I2CSlaveEvent, bus I2CBusID, status uint32) {
	var code uint8
	switch evt {
	case I2CSlaveReceive:
		code = EvtReceive
	case I2CSlaveRequest:
		code = EvtRequest
	default:
		code = EvtFinish
	}
	RecordTrace(code, uint8(bus), status, 0)
}

// TraceEvents returns the ring contents from oldest to newest, skipping
// empty slots.
func TraceEvents() []TraceEvent {
	events := make([]TraceEvent, 0, TraceRingSize)
	start := traceRingHead
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(start+i)%TraceRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

func traceEventName(code uint8) string {
	switch code {
	case EvtReceive:
		return "RECEIVE"
	case EvtRequest:
		return "REQUEST"
	case EvtFinish:
		return "FINISH"
	case EvtPollService:
		return "SERVICE"
	case EvtPollStale:
		return "STALE"
	case EvtPollError:
		return "READ_ERR!"
	}
	return "UNKNOWN"
}

// DumpTraceRing outputs the trace ring buffer (call on shutdown/error)
func DumpTraceRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, evt := range TraceEvents() {
		debugPrintln("[TRACE] " + traceEventName(evt.EventType) +
			" bus=" + itoa(int(evt.Bus)) +
			" clock=" + itoa(int(evt.Clock)) +
			" v1=" + itoa(int(evt.Value1)) +
			" v2=" + itoa(int(evt.Value2)))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTraceRing clears the trace buffer
func ClearTraceRing() {
	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
}

// itoa formats n in decimal. Debug output avoids fmt and strconv to keep
// the firmware small.
func itoa(n int) string {
	var buf [20]byte
	i := len(buf)
	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	if n < 0 {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
