package protocol

import (
	"errors"
	"testing"
)

func TestVLQEncodedLength(t *testing.T) {
	tests := []struct {
		v    int32
		size int
	}{
		{0, 1},
		{95, 1},
		{-32, 1},
		{96, 2},
		{12287, 2},
		{12288, 3},
		{-1 << 26, 4},
		{-1, 1},
		{1 << 30, 5},
	}
	for _, tt := range tests {
		out := NewScratchOutput()
		EncodeVLQInt(out, tt.v)
		if got := len(out.Result()); got != tt.size {
			t.Errorf("%d: expected %d bytes, got %d", tt.v, tt.size, got)
		}
		data := out.Result()
		v, err := DecodeVLQInt(&data)
		if err != nil || v != tt.v {
			t.Errorf("%d: decoded %d (%v)", tt.v, v, err)
		}
	}
}

func TestVLQUintFullRange(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQUint(out, 0xFFFFFFFF)
	data := out.Result()
	if v, err := DecodeVLQUint(&data); err != nil || v != 0xFFFFFFFF {
		t.Errorf("Expected 0xFFFFFFFF, got 0x%X (%v)", v, err)
	}
}

func TestVLQDecodeErrors(t *testing.T) {
	var empty []byte
	if _, err := DecodeVLQInt(&empty); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall on empty input, got %v", err)
	}

	truncated := []byte{0x81}
	if _, err := DecodeVLQInt(&truncated); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall on a cut continuation, got %v", err)
	}

	long := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&long); !errors.Is(err, ErrInvalidVLQ) {
		t.Errorf("Expected ErrInvalidVLQ for six bytes, got %v", err)
	}
}

func TestVLQBytes(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQBytes(out, []byte("sensor"))
	EncodeVLQUint(out, 7)

	data := out.Result()
	b, err := DecodeVLQBytes(&data)
	if err != nil || string(b) != "sensor" {
		t.Fatalf("Expected sensor, got %q (%v)", b, err)
	}
	if v, _ := DecodeVLQUint(&data); v != 7 {
		t.Errorf("Expected trailing 7, got %d", v)
	}

	short := []byte{5, 'a'}
	if _, err := DecodeVLQBytes(&short); !errors.Is(err, ErrBufferTooSmall) {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}
