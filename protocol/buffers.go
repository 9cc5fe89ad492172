package protocol

// InputBuffer is the receive side handed to Framer.Receive.
type InputBuffer interface {
	Data() []byte
	Available() int
	// Pop discards n bytes from the front.
	Pop(n int)
}

// OutputBuffer is the transmit side written by Framer. Positions let the
// framer patch the length byte and roll back an oversized frame.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
	Truncate(pos int)
}

// SliceInputBuffer reads from a fixed byte slice.
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput collects outgoing frames in a fixed array so the firmware
// never allocates on the send path. Bytes past MessageMax are dropped.
type ScratchOutput struct {
	buf [MessageMax]byte
	n   int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.n += copy(s.buf[s.n:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.n }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < s.n {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.n {
		return nil
	}
	return s.buf[pos:s.n]
}

func (s *ScratchOutput) Truncate(pos int) {
	if pos >= 0 && pos < s.n {
		s.n = pos
	}
}

// Result returns everything written since the last Reset.
func (s *ScratchOutput) Result() []byte { return s.buf[:s.n] }

func (s *ScratchOutput) Reset() { s.n = 0 }

// FifoBuffer is a byte ring between the USB reader and the framer. All
// capacity slots are usable.
type FifoBuffer struct {
	buf    []byte
	linear []byte // unwrapped copy returned by Data
	head   int    // index of the oldest byte
	count  int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:    make([]byte, capacity),
		linear: make([]byte, capacity),
	}
}

// Write appends as much of data as fits and returns the number stored.
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	tail := (f.head + f.count) % len(f.buf)
	c := copy(f.buf[tail:], data[:n])
	copy(f.buf, data[c:n])
	f.count += n
	return n
}

// Read moves up to len(data) bytes out of the buffer.
func (f *FifoBuffer) Read(data []byte) int {
	n := copy(data, f.Data())
	f.Pop(n)
	return n
}

func (f *FifoBuffer) Available() int { return f.count }
func (f *FifoBuffer) Free() int      { return len(f.buf) - f.count }
func (f *FifoBuffer) IsEmpty() bool  { return f.count == 0 }

// Data returns the buffered bytes in order. The slice is valid until the
// next Write, Pop or Reset.
func (f *FifoBuffer) Data() []byte {
	end := f.head + f.count
	if end <= len(f.buf) {
		return f.buf[f.head:end]
	}
	n := copy(f.linear, f.buf[f.head:])
	n += copy(f.linear[n:], f.buf[:end-len(f.buf)])
	return f.linear[:n]
}

func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.count)
	f.head = (f.head + n) % len(f.buf)
	f.count -= n
}

func (f *FifoBuffer) Reset() {
	f.head, f.count = 0, 0
}
