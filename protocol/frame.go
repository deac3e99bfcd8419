package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrFrameLength = errors.New("frame: invalid length")
	ErrFrameSync   = errors.New("frame: bad sync or destination")
	ErrFrameCRC    = errors.New("frame: crc mismatch")
)

// Message represents a parsed message block
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte // Frame data without header/trailer
	CRC      uint16
}

// EncodeFrame writes one message block to output. payload writes the
// block contents, normally a VLQ command ID followed by its arguments.
func EncodeFrame(output OutputBuffer, seq uint8, payload func(output OutputBuffer)) error {
	cursor := output.CurPosition()

	// Length placeholder and sequence
	output.Output([]byte{0, seq})
	if payload != nil {
		payload(output)
	}

	msgLen := len(output.DataSince(cursor)) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFrameLength, msgLen, MessageLengthMax)
	}
	output.Update(cursor, uint8(msgLen))

	// CRC over header + payload
	crc := CRC16(output.DataSince(cursor))
	output.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	return nil
}

// EncodeCommand frames a single command with its arguments.
func EncodeCommand(output OutputBuffer, seq uint8, cmdID uint16, args func(output OutputBuffer)) error {
	return EncodeFrame(output, seq, func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// DecodeFrame parses the message block at the start of data and returns it
// with the number of bytes it occupies. The payload aliases data.
// ErrBufferTooSmall means more bytes are needed.
func DecodeFrame(data []byte) (Message, int, error) {
	if len(data) < MessageLengthMin {
		return Message{}, 0, ErrBufferTooSmall
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return Message{}, 0, ErrFrameLength
	}

	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return Message{}, 0, ErrFrameSync
	}

	// Wait for full message
	if len(data) < msgLen {
		return Message{}, 0, ErrBufferTooSmall
	}

	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return Message{}, 0, ErrFrameSync
	}

	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return Message{}, 0, ErrFrameCRC
	}

	return Message{
		Length:   uint8(msgLen),
		Sequence: seq,
		Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
		CRC:      frameCRC,
	}, msgLen, nil
}

// FrameReader pulls message blocks from a byte stream, resynchronising on
// the sync byte after corrupt data.
type FrameReader struct {
	r       io.Reader
	input   *FifoBuffer
	buf     [256]byte
	dropped int
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		r:     r,
		input: NewFifoBuffer(4 * MessageLengthMax),
	}
}

// Next returns the next valid message. The payload is a copy owned by the
// caller. Read errors from the underlying stream are returned as is.
func (fr *FrameReader) Next() (Message, error) {
	for {
		if msg, ok := fr.parse(); ok {
			return msg, nil
		}

		n, err := fr.r.Read(fr.buf[:min(len(fr.buf), fr.input.Free())])
		if n > 0 {
			fr.input.Write(fr.buf[:n])
		}
		if err != nil {
			return Message{}, err
		}
	}
}

// Dropped returns the number of bytes discarded while resynchronising.
func (fr *FrameReader) Dropped() int { return fr.dropped }

// parse consumes buffered bytes until a complete message is found or more
// input is required.
func (fr *FrameReader) parse() (Message, bool) {
	for fr.input.Available() > 0 {
		data := fr.input.Data()

		// Skip leading sync bytes
		if data[0] == MessageValueSync {
			fr.input.Pop(1)
			continue
		}

		msg, n, err := DecodeFrame(data)
		switch {
		case err == nil:
			payload := make([]byte, len(msg.Payload))
			copy(payload, msg.Payload)
			msg.Payload = payload
			fr.input.Pop(n)
			return msg, true
		case errors.Is(err, ErrBufferTooSmall):
			return Message{}, false
		default:
			fr.resync(data)
		}
	}
	return Message{}, false
}

// resync discards data up to and including the next sync byte.
func (fr *FrameReader) resync(data []byte) {
	skip := len(data)
	for i, b := range data {
		if b == MessageValueSync {
			skip = i + 1
			break
		}
	}
	fr.dropped += skip
	fr.input.Pop(skip)
}
