// Package protocol implements the framed VLQ command link between the
// sensorslave firmware and host tools.
package protocol

// Version is the sensorslave firmware version
const Version = "0.1.0"

// Frame layout: [len][seq][payload ...][crc_hi][crc_lo][sync]
const (
	MessageMax         = 1024 // Scratch output capacity
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	MessageSeqMask = 0x0F
)
