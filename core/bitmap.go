package core

import "math/bits"

// MaxSmartDrivers is the widest driver set a DriversBitmap can describe.
const MaxSmartDrivers = 32

// DriverIndex identifies a physical driver channel in [0, NumDrivers).
type DriverIndex uint8

// DriversBitmap is a fixed-width set of driver indices.
// Methods on the value return new bitmaps; the pointer methods
// (SetBit, ClearBit, SetOrClearBit, Clear) mutate in place.
type DriversBitmap uint32

// MakeDriversBitmap returns the bitmap containing only driver d.
// Indices outside the bitmap width yield the empty set.
func MakeDriversBitmap(d DriverIndex) DriversBitmap {
	if d >= MaxSmartDrivers {
		return 0
	}
	return DriversBitmap(1) << d
}

// LowestNBits returns the bitmap of drivers 0..n-1.
func LowestNBits(n int) DriversBitmap {
	if n <= 0 {
		return 0
	}
	if n >= MaxSmartDrivers {
		return ^DriversBitmap(0)
	}
	return (DriversBitmap(1) << uint(n)) - 1
}

func (b DriversBitmap) Union(o DriversBitmap) DriversBitmap     { return b | o }
func (b DriversBitmap) Intersect(o DriversBitmap) DriversBitmap { return b & o }
func (b DriversBitmap) Without(o DriversBitmap) DriversBitmap   { return b &^ o }
func (b DriversBitmap) Complement() DriversBitmap               { return ^b }

// Intersects reports whether b and o share at least one driver.
func (b DriversBitmap) Intersects(o DriversBitmap) bool { return b&o != 0 }

// Disjoint reports whether b and o share no driver.
func (b DriversBitmap) Disjoint(o DriversBitmap) bool { return b&o == 0 }

// SubsetOf reports whether every driver in b is also in o.
func (b DriversBitmap) SubsetOf(o DriversBitmap) bool { return b&^o == 0 }

func (b DriversBitmap) IsBitSet(d DriverIndex) bool { return b.Intersects(MakeDriversBitmap(d)) }
func (b DriversBitmap) IsEmpty() bool               { return b == 0 }

// Count returns the number of drivers in the set.
func (b DriversBitmap) Count() int {
	return bits.OnesCount32(uint32(b))
}

func (b *DriversBitmap) SetBit(d DriverIndex)   { *b |= MakeDriversBitmap(d) }
func (b *DriversBitmap) ClearBit(d DriverIndex) { *b &^= MakeDriversBitmap(d) }
func (b *DriversBitmap) Clear()                 { *b = 0 }

// SetOrClearBit sets bit d when on is true and clears it otherwise.
func (b *DriversBitmap) SetOrClearBit(d DriverIndex, on bool) {
	if on {
		b.SetBit(d)
	} else {
		b.ClearBit(d)
	}
}

// Iterate calls fn for every driver in the set in ascending order.
func (b DriversBitmap) Iterate(fn func(d DriverIndex)) {
	for v := uint32(b); v != 0; v &= v - 1 {
		fn(DriverIndex(bits.TrailingZeros32(v)))
	}
}

// String renders the set as a hex word, e.g. "0x00000005".
func (b DriversBitmap) String() string {
	return "0x" + hex32(uint32(b))
}

