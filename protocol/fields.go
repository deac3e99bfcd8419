package protocol

import "periph.io/x/conn/v3/physic"

// EncodeVLQBool writes b as 0 or 1.
func EncodeVLQBool(output OutputBuffer, b bool) {
	v := uint32(0)
	if b {
		v = 1
	}
	EncodeVLQUint(output, v)
}

// EncodeMillivolts writes v rounded toward zero to whole millivolts.
func EncodeMillivolts(output OutputBuffer, v physic.ElectricPotential) {
	EncodeVLQInt(output, int32(v/physic.MilliVolt))
}

// FieldReader decodes the arguments of one command or response in order.
// After the first failure every read returns zero and Err reports it, so a
// handler can read all of its fields and check once.
type FieldReader struct {
	data *[]byte
	err  error
}

func NewFieldReader(data *[]byte) *FieldReader {
	return &FieldReader{data: data}
}

func (r *FieldReader) Int() int32 {
	if r.err != nil {
		return 0
	}
	v, err := DecodeVLQInt(r.data)
	r.err = err
	return v
}

func (r *FieldReader) Uint() uint32 { return uint32(r.Int()) }

func (r *FieldReader) Bool() bool { return r.Int() != 0 }

func (r *FieldReader) Millivolts() physic.ElectricPotential {
	return physic.ElectricPotential(r.Int()) * physic.MilliVolt
}

// Err returns the first decode error.
func (r *FieldReader) Err() error { return r.err }
