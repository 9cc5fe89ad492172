//go:build rp2040

package main

import (
	"machine"
	"time"

	"sensorslave/core"
	"sensorslave/protocol"
)

// maxWriteFailures is how many failed USB writes in a row mark the host as
// gone. Queued output is then dropped.
const maxWriteFailures = 10

// usbLink carries command frames over the USB CDC port. machine.Serial is
// USB on RP2040, not a UART.
type usbLink struct {
	in     *protocol.FifoBuffer
	out    *protocol.ScratchOutput
	framer *protocol.Framer

	// Counters reported in the trace dump
	frames   uint32
	errors   uint32
	failures uint32

	disconnected bool
}

func newUSBLink() *usbLink {
	machine.Serial.Configure(machine.UARTConfig{})
	l := &usbLink{
		in:  protocol.NewFifoBuffer(256),
		out: protocol.NewScratchOutput(),
	}
	l.framer = protocol.NewFramer(l.out, l.handleFrame)
	return l
}

func (l *usbLink) handleFrame(seq uint8, payload []byte) {
	l.frames++
	if err := core.DispatchFrame(payload); err != nil {
		l.errors++
		core.DebugAsync("[CMD] " + err.Error())
	}
}

// reset drops partial input and unsent output, as after a reconnect.
func (l *usbLink) reset() {
	l.in.Reset()
	l.out.Reset()
	l.framer.Reset()
	l.failures = 0
}

// readLoop moves bytes from USB into the input FIFO. It runs as its own
// goroutine and restarts itself after a panic.
func (l *usbLink) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			l.errors++
			time.Sleep(100 * time.Millisecond)
			go l.readLoop()
		}
	}()

	for {
		for machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				l.errors++
				break
			}
			if l.disconnected {
				l.disconnected = false
				l.reset()
			}
			if l.in.Write([]byte{b}) == 0 {
				// Input overrun; the frame is lost and the host call times out.
				l.errors++
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// poll parses received frames and flushes responses.
func (l *usbLink) poll() {
	if !l.in.IsEmpty() {
		l.framer.Receive(l.in)
	}
	if len(l.out.Result()) > 0 {
		l.flush()
	}
}

func (l *usbLink) flush() {
	pending := l.out.Result()
	for len(pending) > 0 {
		n, err := machine.Serial.Write(pending)
		if err != nil || n == 0 {
			l.failures++
			if l.failures > maxWriteFailures {
				l.disconnected = true
				l.reset()
			}
			return
		}
		pending = pending[n:]
	}
	l.failures = 0
	l.out.Reset()
}
