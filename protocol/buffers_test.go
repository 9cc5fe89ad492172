package protocol

import "testing"

func TestCRC16(t *testing.T) {
	// CRC-16/MCRF4XX check value
	if crc := CRC16([]byte("123456789")); crc != 0x6F91 {
		t.Errorf("Expected 0x6F91, got 0x%04X", crc)
	}
	if crc := CRC16(nil); crc != 0xFFFF {
		t.Errorf("Expected init value 0xFFFF, got 0x%04X", crc)
	}
}

func TestFifoBufferWrap(t *testing.T) {
	f := NewFifoBuffer(8)
	if f.Free() != 8 {
		t.Fatalf("Expected 8 free slots, got %d", f.Free())
	}

	f.Write([]byte{1, 2, 3, 4, 5, 6})
	f.Pop(5)
	if n := f.Write([]byte{7, 8, 9, 10, 11, 12, 13}); n != 7 {
		t.Fatalf("Expected 7 bytes written across the wrap, got %d", n)
	}
	if f.Free() != 0 {
		t.Errorf("Expected buffer full, got %d free", f.Free())
	}
	if n := f.Write([]byte{14}); n != 0 {
		t.Errorf("Expected write to a full buffer to drop, got %d", n)
	}

	want := []byte{6, 7, 8, 9, 10, 11, 12, 13}
	if got := f.Data(); string(got) != string(want) {
		t.Errorf("Expected contiguous %v, got %v", want, got)
	}

	buf := make([]byte, 3)
	if n := f.Read(buf); n != 3 || buf[0] != 6 || buf[2] != 8 {
		t.Errorf("Expected to read 6 7 8, got %v (%d)", buf, n)
	}
	if f.Available() != 5 {
		t.Errorf("Expected 5 bytes left, got %d", f.Available())
	}
	f.Pop(100)
	if !f.IsEmpty() {
		t.Error("Expected Pop past the end to empty the buffer")
	}
	f.Write([]byte{1})
	f.Reset()
	if !f.IsEmpty() || f.Available() != 0 {
		t.Error("Expected empty after Reset")
	}
}

func TestScratchOutput(t *testing.T) {
	s := NewScratchOutput()
	s.Output([]byte{1, 2, 3})
	pos := s.CurPosition()
	s.Output([]byte{4, 5})
	s.Update(0, 9)

	if got := s.DataSince(pos); len(got) != 2 || got[0] != 4 {
		t.Errorf("Expected [4 5] since %d, got %v", pos, got)
	}
	s.Truncate(pos)
	if got := s.Result(); len(got) != 3 || got[0] != 9 {
		t.Errorf("Expected [9 2 3], got %v", got)
	}

	s.Output(make([]byte, MessageMax))
	if s.CurPosition() != MessageMax {
		t.Errorf("Expected writes past capacity truncated at %d, got %d", MessageMax, s.CurPosition())
	}
}
