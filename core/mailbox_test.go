package core

import "testing"

func TestMailboxSelect(t *testing.T) {
	var mb Mailbox
	mb.SetPendingValue(0x1FF)

	mb.Select(0xC3)
	snap := mb.Snapshot()
	if snap.Bundle != 0xC || snap.Sensor != 0x3 {
		t.Errorf("Expected bundle 0xC sensor 0x3, got %+v", snap)
	}
	if snap.Value != 0 {
		t.Errorf("Expected value reset on selection, got 0x%X", snap.Value)
	}
	if !snap.ReadRequired {
		t.Error("Expected read_required after selection")
	}
	if snap.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", snap.Seq)
	}
}

func TestMailboxSettersReturnStoredValue(t *testing.T) {
	var mb Mailbox
	mb.Select(0x45)

	if got := mb.SetPendingValue(0xBEEF); got != 0xBEEF {
		t.Errorf("Expected 0xBEEF, got 0x%X", got)
	}
	if got := mb.SetReadRequired(false); got {
		t.Error("Expected read_required false")
	}
	if got := mb.SetReadRequired(true); !got {
		t.Error("Expected read_required true")
	}

	// Neither setter touches the selection
	if mb.Bundle() != 4 || mb.Sensor() != 5 {
		t.Errorf("Expected selection 4/5, got %d/%d", mb.Bundle(), mb.Sensor())
	}
	if mb.PendingValue() != 0xBEEF {
		t.Errorf("Expected pending 0xBEEF, got 0x%X", mb.PendingValue())
	}
}

func TestMailboxComplete(t *testing.T) {
	var mb Mailbox
	mb.Select(0x27)
	seq := mb.Snapshot().Seq

	if !mb.Complete(seq, 0x9D) {
		t.Fatal("Expected Complete to succeed for the current selection")
	}
	snap := mb.Snapshot()
	if snap.Value != 0x9D || snap.ReadRequired {
		t.Errorf("Expected value 0x9D without read_required, got %+v", snap)
	}
}

func TestMailboxCompleteStale(t *testing.T) {
	var mb Mailbox
	mb.Select(0x27)
	seq := mb.Snapshot().Seq
	mb.Select(0x31)

	if mb.Complete(seq, 0x9D) {
		t.Fatal("Expected Complete to refuse a superseded selection")
	}
	snap := mb.Snapshot()
	if snap.Value != 0 || !snap.ReadRequired || snap.Bundle != 3 || snap.Sensor != 1 {
		t.Errorf("Expected the newer selection untouched, got %+v", snap)
	}
}

func TestMailboxSeqWraps(t *testing.T) {
	var mb Mailbox
	for i := 0; i < mbSeqMask; i++ {
		mb.Select(0xFF)
	}
	if seq := mb.Snapshot().Seq; seq != mbSeqMask {
		t.Fatalf("Expected seq %d, got %d", mbSeqMask, seq)
	}

	mb.Select(0x12)
	snap := mb.Snapshot()
	if snap.Seq != 0 {
		t.Errorf("Expected seq to wrap to 0, got %d", snap.Seq)
	}
	if snap.Bundle != 1 || snap.Sensor != 2 || !snap.ReadRequired {
		t.Errorf("Expected wrap to leave the other fields intact, got %+v", snap)
	}
}

func TestMailboxReset(t *testing.T) {
	var mb Mailbox
	mb.Select(0xAB)
	mb.SetPendingValue(7)
	mb.Reset()

	if snap := mb.Snapshot(); snap != (MailboxSnapshot{}) {
		t.Errorf("Expected zero snapshot after Reset, got %+v", snap)
	}
}

func TestDefaultMailboxAccessors(t *testing.T) {
	DefaultMailbox().Reset()
	t.Cleanup(DefaultMailbox().Reset)

	DefaultMailbox().Select(0x6E)
	if GetSelectedBundle() != 6 || GetSelectedSensor() != 0xE || !IsReadRequired() {
		t.Errorf("Expected package accessors to see the default mailbox, got %+v", DefaultMailbox().Snapshot())
	}
	SetPendingValue(0x42)
	SetReadRequired(false)
	if DefaultMailbox().PendingValue() != 0x42 || DefaultMailbox().ReadRequired() {
		t.Errorf("Expected package setters to write the default mailbox, got %+v", DefaultMailbox().Snapshot())
	}
}
