package core

import (
	"errors"
	"testing"
)

func TestI2CSlaveInitConfiguresController(t *testing.T) {
	sim := newSlaveTest(t)

	if err := I2CSlaveInit(0, 0xC2, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}
	if err := I2CSlaveInit(1, 0x30, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	st := sim.State(0)
	if !st.PinsSet || st.SDA != 4 || st.SCL != 5 {
		t.Errorf("Expected bus 0 on GP4/GP5, got SDA=%d SCL=%d", st.SDA, st.SCL)
	}
	if st.Freq != I2CSlaveFreq {
		t.Errorf("Expected %d Hz, got %d", I2CSlaveFreq, st.Freq)
	}
	if !st.Slave || st.Addr != 0x42 {
		t.Errorf("Expected slave mode at 0x42, got slave=%v addr=0x%02X", st.Slave, st.Addr)
	}
	if st.Mask != IntrMaskSlave {
		t.Errorf("Expected mask 0x%03X, got 0x%03X", IntrMaskSlave, st.Mask)
	}
	if !st.IRQEnabled {
		t.Error("Expected IRQ enabled")
	}

	st = sim.State(1)
	if st.SDA != 6 || st.SCL != 7 {
		t.Errorf("Expected bus 1 on GP6/GP7, got SDA=%d SCL=%d", st.SDA, st.SCL)
	}
	if I2CSlaveBoundMask() != 0x3 {
		t.Errorf("Expected bound mask 0b11, got %02b", I2CSlaveBoundMask())
	}
}

func TestI2CSlaveMaskIsExactlySlaveSources(t *testing.T) {
	want := IntrRxFull | IntrRdReq | IntrTxAbort | IntrStopDet | IntrStartDet
	if IntrMaskSlave != want {
		t.Errorf("Expected slave mask 0x%03X, got 0x%03X", want, IntrMaskSlave)
	}
}

func TestI2CSlaveDeinitRestoresController(t *testing.T) {
	sim := newSlaveTest(t)

	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}
	sim.PushRx(0, 0x27)
	sim.Fire(0)

	I2CSlaveDeinit(0)

	st := sim.State(0)
	if st.IRQEnabled {
		t.Error("Expected IRQ disabled after deinit")
	}
	if st.Mask != IntrMaskReset {
		t.Errorf("Expected reset mask 0x%03X, got 0x%03X", IntrMaskReset, st.Mask)
	}
	if st.Slave {
		t.Error("Expected controller out of slave mode")
	}
	if I2CSlaveBound(0) || I2CSlaveTransferActive(0) {
		t.Error("Expected slot fully cleared")
	}

	// The mailbox is process-wide and survives unbind
	if !IsReadRequired() || GetSelectedBundle() != 2 || GetSelectedSensor() != 7 {
		t.Errorf("Expected mailbox to keep selection 2/7, got %+v", DefaultMailbox().Snapshot())
	}

	// A late interrupt on the disabled line is never delivered
	sim.Raise(0, IntrStopDet)
	sim.Fire(0)
}

func TestI2CSlaveContractViolations(t *testing.T) {
	newSlaveTest(t)

	expectPanic(t, errSlaveBadBus, func() { I2CSlaveInit(I2CSlaveCount, 0x42, slaveProtocol) })
	expectPanic(t, errSlaveNilHandler, func() { I2CSlaveInit(0, 0x42, nil) })
	expectPanic(t, errSlaveNotBound, func() { I2CSlaveDeinit(0) })
	expectPanic(t, errSlaveBadBus, func() { I2CSlaveDeinit(I2CSlaveCount) })
	expectPanic(t, errSlaveNotBound, func() { I2CSlaveIRQ(1) })

	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}
	expectPanic(t, errSlaveBound, func() { I2CSlaveInit(0, 0x43, slaveProtocol) })

	if !I2CSlaveBound(0) {
		t.Error("Expected failed re-bind to leave the first binding in place")
	}
}

func TestI2CSlaveInitHardwareError(t *testing.T) {
	sim := newSlaveTest(t)
	sim.Fail = errors.New("pin in use")

	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err == nil {
		t.Fatal("Expected error from pin setup")
	}
	if I2CSlaveBound(0) {
		t.Error("Expected bus to stay unbound after a hardware error")
	}
	if sim.State(0).IRQEnabled {
		t.Error("Expected IRQ to stay disabled after a hardware error")
	}
}

func TestReceiveSelectsBundleAndSensor(t *testing.T) {
	sim := newSlaveTest(t)
	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	for b := 0; b < 256; b++ {
		SetPendingValue(0xABCD)
		SetReadRequired(false)

		sim.PushRx(0, byte(b))
		sim.Fire(0)

		snap := DefaultMailbox().Snapshot()
		if snap.Sensor != uint8(b&0xF) || snap.Bundle != uint8(b>>4) {
			t.Fatalf("Byte 0x%02X: expected bundle=%d sensor=%d, got %+v", b, b>>4, b&0xF, snap)
		}
		if snap.Value != 0 || !snap.ReadRequired {
			t.Fatalf("Byte 0x%02X: expected value reset and read_required, got %+v", b, snap)
		}
	}
	if got := GetI2CSlaveStats(0).Receives.Load(); got != 256 {
		t.Errorf("Expected 256 receives, got %d", got)
	}
}

func TestRequestSendsTwoNibbles(t *testing.T) {
	sim := newSlaveTest(t)
	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}
	master := sim.Master(0)

	for v := 0; v <= 0xFFFF; v += 0x0FB {
		SetPendingValue(uint16(v))
		var buf [2]byte
		if err := master.Tx(0x42, nil, buf[:]); err != nil {
			t.Fatalf("Value 0x%04X: read failed: %v", v, err)
		}
		want := [2]byte{byte((v >> 4) & 0xF), byte(v & 0xF)}
		if buf != want {
			t.Fatalf("Value 0x%04X: expected %v, got %v", v, want, buf)
		}
	}

	// Values above 0xFF lose their upper bits on the wire
	SetPendingValue(0x1234)
	var buf [2]byte
	if err := master.Tx(0x42, nil, buf[:]); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if buf != [2]byte{0x3, 0x4} {
		t.Errorf("Expected [0x3 0x4] for 0x1234, got %v", buf)
	}
}

func TestCombinedTerminatorsFinishOnce(t *testing.T) {
	sim := newSlaveTest(t)
	rec := &eventRecorder{inner: slaveProtocol}
	if err := I2CSlaveInit(0, 0x42, rec); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	sim.PushRx(0, 0x27)
	sim.Fire(0)
	if !I2CSlaveTransferActive(0) {
		t.Fatal("Expected transfer in progress after RECEIVE")
	}

	sim.ResetClears(0)
	sim.Raise(0, IntrTxAbort|IntrStartDet|IntrStopDet)
	sim.Fire(0)

	if n := rec.count(I2CSlaveFinish); n != 1 {
		t.Errorf("Expected exactly one FINISH, got %d", n)
	}
	if I2CSlaveTransferActive(0) {
		t.Error("Expected transfer_in_progress cleared")
	}

	clears := sim.State(0).Clears
	want := []I2CIntr{IntrTxAbort, IntrStartDet, IntrStopDet}
	if len(clears) != len(want) {
		t.Fatalf("Expected clears %v, got %v", want, clears)
	}
	for i := range want {
		if clears[i] != want[i] {
			t.Errorf("Clear %d: expected 0x%03X, got 0x%03X", i, want[i], clears[i])
		}
	}
	if sim.State(0).Raw != 0 {
		t.Errorf("Expected all conditions cleared, raw=0x%03X", sim.State(0).Raw)
	}
}

func TestTerminatorHandledBeforeNewReceive(t *testing.T) {
	sim := newSlaveTest(t)
	rec := &eventRecorder{inner: slaveProtocol}
	if err := I2CSlaveInit(1, 0x42, rec); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	sim.PushRx(1, 0x11)
	sim.Fire(1)

	// Restart and the next selection byte land in one status snapshot
	rec.events = nil
	sim.Raise(1, IntrStartDet)
	sim.PushRx(1, 0x22)
	sim.Fire(1)

	want := []I2CSlaveEvent{I2CSlaveFinish, I2CSlaveReceive}
	if len(rec.events) != len(want) || rec.events[0] != want[0] || rec.events[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, rec.events)
	}
	if !I2CSlaveTransferActive(1) {
		t.Error("Expected the new transfer to be in progress")
	}
	if GetSelectedBundle() != 2 || GetSelectedSensor() != 2 {
		t.Errorf("Expected selection 2/2, got %d/%d", GetSelectedBundle(), GetSelectedSensor())
	}
}

func TestTerminatorWithoutTransfer(t *testing.T) {
	sim := newSlaveTest(t)
	rec := &eventRecorder{}
	if err := I2CSlaveInit(0, 0x42, rec); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	sim.Raise(0, IntrStopDet)
	sim.Fire(0)

	if len(rec.events) != 0 {
		t.Errorf("Expected no events without a transfer, got %v", rec.events)
	}
	if clears := sim.State(0).Clears; len(clears) != 1 || clears[0] != IntrStopDet {
		t.Errorf("Expected STOP_DET cleared, got %v", clears)
	}
}

func TestReceiveFullIsNotCleared(t *testing.T) {
	sim := newSlaveTest(t)
	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	sim.PushRx(0, 0x27)
	sim.Raise(0, IntrRdReq)
	sim.Fire(0)

	for _, c := range sim.State(0).Clears {
		if c&IntrRxFull != 0 {
			t.Errorf("Expected RX_FULL never cleared by register, got clear 0x%03X", c)
		}
	}
	st := sim.State(0)
	if st.Raw&IntrRxFull != 0 {
		t.Error("Expected RX_FULL to drop once the FIFO is drained")
	}
	if len(st.Tx) != 2 {
		t.Errorf("Expected two reply bytes queued, got %v", st.Tx)
	}
}

func TestSpuriousInterrupt(t *testing.T) {
	sim := newSlaveTest(t)
	rec := &eventRecorder{inner: slaveProtocol}
	if err := I2CSlaveInit(0, 0x42, rec); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}
	SetPendingValue(0x55)
	before := DefaultMailbox().Snapshot()

	// ACTIVITY is masked out in slave mode, so it reads as zero status
	sim.Raise(0, IntrActivity)
	for i := 0; i < 3; i++ {
		sim.Fire(0)
		I2CSlaveIRQ(0)
	}

	if len(rec.events) != 0 {
		t.Errorf("Expected no events, got %v", rec.events)
	}
	if after := DefaultMailbox().Snapshot(); after != before {
		t.Errorf("Expected mailbox unchanged, got %+v want %+v", after, before)
	}
	if len(sim.State(0).Clears) != 0 {
		t.Errorf("Expected no clears, got %v", sim.State(0).Clears)
	}
	if got := GetI2CSlaveStats(0).Spurious.Load(); got != 6 {
		t.Errorf("Expected 6 spurious interrupts, got %d", got)
	}
}

func TestBindUnbindCycle(t *testing.T) {
	sim := newSlaveTest(t)
	master := sim.Master(0)

	cycle := func() (I2CSlaveEvent, [2]byte) {
		rec := &eventRecorder{inner: slaveProtocol}
		if err := I2CSlaveInit(0, 0x42, rec); err != nil {
			t.Fatalf("I2CSlaveInit failed: %v", err)
		}
		if err := master.Tx(0x42, []byte{0x27}, nil); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		SetPendingValue(0x9D)
		var buf [2]byte
		if err := master.Tx(0x42, nil, buf[:]); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if n := GetI2CSlaveStats(0).Finishes.Load(); n != 2 {
			t.Errorf("Expected 2 finishes this binding, got %d", n)
		}
		last := rec.events[len(rec.events)-1]
		I2CSlaveDeinit(0)
		return last, buf
	}

	evt1, buf1 := cycle()
	evt2, buf2 := cycle()
	if evt1 != evt2 || buf1 != buf2 {
		t.Errorf("Expected identical cycles, got %v/%v and %v/%v", evt1, buf1, evt2, buf2)
	}
	if buf1 != [2]byte{0x9, 0xD} {
		t.Errorf("Expected [0x9 0xD], got %v", buf1)
	}

	if err := master.Tx(0x42, []byte{0x27}, nil); !errors.Is(err, ErrSimNack) {
		t.Errorf("Expected NACK from an unbound controller, got %v", err)
	}
}

func TestEndToEnd(t *testing.T) {
	sim := newSlaveTest(t)
	if err := I2CSlaveInit(0, 0x42, slaveProtocol); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}
	master := sim.Master(0)

	if err := master.Tx(0x42, []byte{0x27}, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if GetSelectedBundle() != 2 {
		t.Errorf("Expected bundle 2, got %d", GetSelectedBundle())
	}
	if GetSelectedSensor() != 7 {
		t.Errorf("Expected sensor 7, got %d", GetSelectedSensor())
	}
	if !IsReadRequired() {
		t.Error("Expected read_required after selection")
	}

	if v := SetPendingValue(0x9D); v != 0x9D {
		t.Errorf("Expected stored value 0x9D, got 0x%X", v)
	}
	if SetReadRequired(false) {
		t.Error("Expected read_required cleared")
	}

	var buf [2]byte
	if err := master.Tx(0x42, nil, buf[:]); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if buf != [2]byte{0x9, 0xD} {
		t.Errorf("Expected [0x9 0xD], got %v", buf)
	}
	if I2CSlaveTransferActive(0) {
		t.Error("Expected no transfer in progress after STOP")
	}
}

func TestWriteThenReadWithRestart(t *testing.T) {
	sim := newSlaveTest(t)
	rec := &eventRecorder{inner: slaveProtocol}
	if err := I2CSlaveInit(0, 0x42, rec); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	var buf [2]byte
	if err := sim.Master(0).Tx(0x42, []byte{0x13}, buf[:]); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	// The selection resets the value, so the read returns zero digits
	if buf != [2]byte{0, 0} {
		t.Errorf("Expected [0 0], got %v", buf)
	}
	want := []I2CSlaveEvent{I2CSlaveReceive, I2CSlaveFinish, I2CSlaveRequest, I2CSlaveFinish}
	if len(rec.events) != len(want) {
		t.Fatalf("Expected %v, got %v", want, rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("Event %d: expected %v, got %v", i, want[i], rec.events[i])
		}
	}
}

func TestSharedMailboxAcrossBuses(t *testing.T) {
	sim := newSlaveTest(t)
	for bus := I2CBusID(0); bus < I2CSlaveCount; bus++ {
		if err := I2CSlaveInit(bus, 0x42, slaveProtocol); err != nil {
			t.Fatalf("I2CSlaveInit(%d) failed: %v", bus, err)
		}
	}

	if err := sim.Master(1).Tx(0x42, []byte{0x5A}, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	SetPendingValue(0x3C)

	var buf [2]byte
	if err := sim.Master(0).Tx(0x42, nil, buf[:]); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if buf != [2]byte{0x3, 0xC} {
		t.Errorf("Expected bus 0 to serve the value published after bus 1 selection, got %v", buf)
	}
	if GetSelectedBundle() != 5 || GetSelectedSensor() != 0xA {
		t.Errorf("Expected selection 5/10, got %d/%d", GetSelectedBundle(), GetSelectedSensor())
	}
}

func TestReadUnderflowAborts(t *testing.T) {
	sim := newSlaveTest(t)
	silent := I2CSlaveHandlerFunc(func(ctl *I2CSlaveController, evt I2CSlaveEvent) {})
	rec := &eventRecorder{inner: silent}
	if err := I2CSlaveInit(0, 0x42, rec); err != nil {
		t.Fatalf("I2CSlaveInit failed: %v", err)
	}

	var buf [1]byte
	if err := sim.Master(0).Tx(0x42, nil, buf[:]); !errors.Is(err, ErrSimUnderflow) {
		t.Fatalf("Expected underflow, got %v", err)
	}
	if rec.count(I2CSlaveFinish) != 1 {
		t.Errorf("Expected abort to finish the request once, got %v", rec.events)
	}
	if I2CSlaveTransferActive(0) {
		t.Error("Expected transfer cleared after abort")
	}
}

func TestI2CSlaveEventString(t *testing.T) {
	if I2CSlaveReceive.String() != "RECEIVE" || I2CSlaveRequest.String() != "REQUEST" || I2CSlaveFinish.String() != "FINISH" {
		t.Error("Unexpected event names")
	}
	if I2CSlaveEvent(9).String() != "UNKNOWN" {
		t.Errorf("Expected UNKNOWN, got %s", I2CSlaveEvent(9))
	}
}
