package protocol

import "errors"

// ErrBufferTooSmall means the input ended inside a value or a frame.
var ErrBufferTooSmall = errors.New("protocol: buffer too small")

// vlqMaxLen is the longest encoding of a 32-bit value.
const vlqMaxLen = 5

// EncodeVLQInt writes v most significant group first, 7 bits per byte with
// the high bit marking continuation. A group is emitted only when v does
// not fit the signed range of the groups below it, so values in [-32, 96)
// take one byte.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var buf [vlqMaxLen]byte
	n := 0
	for shift := 28; shift > 0; shift -= 7 {
		lo, hi := int32(-1)<<(shift-2), int32(3)<<(shift-2)
		if n > 0 || v < lo || v >= hi {
			buf[n] = byte(v>>shift)&0x7F | 0x80
			n++
		}
	}
	buf[n] = byte(v) & 0x7F
	output.Output(buf[:n+1])
}

// EncodeVLQUint writes v with the signed encoding; the decoder reverses
// the reinterpretation.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// DecodeVLQInt reads one value and advances data past it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	in := *data
	if len(in) == 0 {
		return 0, ErrBufferTooSmall
	}
	v := uint32(in[0]) & 0x7F
	if in[0]&0x60 == 0x60 {
		// negative leading group
		v |= ^uint32(0x1F)
	}
	i := 0
	for in[i]&0x80 != 0 {
		i++
		if i == len(in) {
			return 0, ErrBufferTooSmall
		}
		v = v<<7 | uint32(in[i])&0x7F
	}
	*data = in[i+1:]
	return int32(v), nil
}

// DecodeVLQUint reads one value written by EncodeVLQUint.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes writes a length prefix followed by data.
func EncodeVLQBytes(output OutputBuffer, data []byte) {
	EncodeVLQUint(output, uint32(len(data)))
	output.Output(data)
}

// DecodeVLQBytes reads a length-prefixed block. The result aliases data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	in := *data
	n, err := DecodeVLQUint(&in)
	if err != nil {
		return nil, err
	}
	if uint32(len(in)) < n {
		return nil, ErrBufferTooSmall
	}
	*data = in[n:]
	return in[:n], nil
}

func EncodeVLQString(output OutputBuffer, s string) {
	EncodeVLQBytes(output, []byte(s))
}

func DecodeVLQString(data *[]byte) (string, error) {
	b, err := DecodeVLQBytes(data)
	return string(b), err
}
