package protocol

import "errors"

var (
	ErrPayloadTooLarge = errors.New("frame payload too large")
	ErrUnknownCommand  = errors.New("unknown command")
)

// FrameHandler receives the payload of every valid frame
type FrameHandler func(seq uint8, payload []byte)

// CommandHandler handles one command; it decodes its own arguments from data
type CommandHandler func(cmdID uint16, data *[]byte) error

// Framer splits an input stream into frames and encodes outgoing frames.
// Both ends of the link use it.
type Framer struct {
	output  OutputBuffer
	handler FrameHandler

	synchronized bool
	nextSeq      uint8

	// Counters for link diagnostics
	Frames    uint32
	BadFrames uint32
}

// NewFramer creates a Framer writing to output and passing frames to handler
func NewFramer(output OutputBuffer, handler FrameHandler) *Framer {
	return &Framer{
		output:       output,
		handler:      handler,
		synchronized: true,
		nextSeq:      MessageDest,
	}
}

// Receive parses every complete frame in input and pops the consumed bytes.
// On a bad length, destination, CRC or sync byte it drops data up to the
// next sync byte.
func (f *Framer) Receive(input InputBuffer) {
	data := input.Data()
	start := len(data)

	for len(data) > 0 {
		if !f.synchronized {
			i := 0
			for i < len(data) && data[i] != MessageValueSync {
				i++
			}
			if i == len(data) {
				data = data[:0]
				break
			}
			data = data[i+1:]
			f.synchronized = true
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}

		msgLen := int(data[MessagePositionLen])
		seq := data[MessagePositionSeq]
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax || seq&^MessageSeqMask != MessageDest {
			f.desync()
			continue
		}
		if len(data) < msgLen {
			break
		}
		if data[msgLen-1] != MessageValueSync {
			f.desync()
			continue
		}
		crc := uint16(data[msgLen-3])<<8 | uint16(data[msgLen-2])
		if crc != CRC16(data[:msgLen-MessageTrailerSize]) {
			f.desync()
			continue
		}

		payload := data[MessageHeaderSize : msgLen-MessageTrailerSize]
		data = data[msgLen:]
		f.Frames++
		if f.handler != nil {
			f.handler(seq&MessageSeqMask, payload)
		}
	}

	input.Pop(start - len(data))
}

func (f *Framer) desync() {
	f.BadFrames++
	f.synchronized = false
}

// EncodeFrame writes one frame whose payload is produced by frameData
func (f *Framer) EncodeFrame(frameData func(output OutputBuffer)) error {
	cursor := f.output.CurPosition()
	f.output.Output([]byte{0, f.nextSeq})
	frameData(f.output)

	n := len(f.output.DataSince(cursor)) + MessageTrailerSize
	if n > MessageLengthMax {
		f.output.Truncate(cursor)
		return ErrPayloadTooLarge
	}
	f.output.Update(cursor, uint8(n))

	crc := CRC16(f.output.DataSince(cursor))
	f.output.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	f.nextSeq = MessageDest | (f.nextSeq+1)&MessageSeqMask
	return nil
}

// SendCommand encodes cmdID followed by the arguments written by args
func (f *Framer) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return f.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns the framer to its power-on state
func (f *Framer) Reset() {
	f.synchronized = true
	f.nextSeq = MessageDest
}

// DispatchCommands decodes every command in payload and calls handler for
// each. It stops at the first error.
func DispatchCommands(payload []byte, handler CommandHandler) error {
	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		if err := handler(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}
