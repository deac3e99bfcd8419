// Package protocol implements the message block codec used between the
// expansion board and the host: VLQ encoded commands inside CRC16 framed
// blocks.
package protocol

// Version is the status report protocol version
const Version = "0.1.0"

// Message block layout: [len][seq][payload...][crc hi][crc lo][sync]
const (
	MessageMax         = 512 // Scratch output buffer size
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	// MessageLengthMax leaves room for a full driver_status report with
	// every bitmap at its widest encoding.
	MessageLengthMax   = 128
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F
)
