package core

import (
	"strings"
	"testing"
)

func TestItoa(t *testing.T) {
	for n, want := range map[int]string{0: "0", 7: "7", 400000: "400000", -42: "-42"} {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d): expected %q, got %q", n, want, got)
		}
	}
}

func TestTraceRingKeepsNewest(t *testing.T) {
	ClearTraceRing()
	t.Cleanup(ClearTraceRing)

	for i := 0; i < TraceRingSize+5; i++ {
		RecordTrace(EvtPollService, 0, uint32(i), 0)
	}
	events := TraceEvents()
	if len(events) != TraceRingSize {
		t.Fatalf("Expected %d events, got %d", TraceRingSize, len(events))
	}
	if events[0].Value1 != 5 || events[len(events)-1].Value1 != TraceRingSize+4 {
		t.Errorf("Expected oldest 5 and newest %d, got %d and %d",
			TraceRingSize+4, events[0].Value1, events[len(events)-1].Value1)
	}
}

func TestDumpTraceRing(t *testing.T) {
	ClearTraceRing()
	t.Cleanup(ClearTraceRing)
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	t.Cleanup(func() { SetDebugWriter(func(string) {}) })

	SetTime(1234)
	RecordSlaveEvent(I2CSlaveReceive, 1, uint32(IntrRxFull))
	RecordTrace(EvtPollError, 0, 0x27, 0)
	DumpTraceRing()

	if len(lines) != 4 {
		t.Fatalf("Expected header, 2 events and footer, got %q", lines)
	}
	if lines[1] != "[TRACE] RECEIVE bus=1 clock=1234 v1=4 v2=0" {
		t.Errorf("Unexpected RECEIVE line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "[TRACE] READ_ERR! bus=0") {
		t.Errorf("Unexpected error line %q", lines[2])
	}
}
