package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

const hexDigits = "0123456789abcdef"

// hex32 renders v as exactly eight lower-case hex digits.
func hex32(v uint32) string {
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf[:])
}

// decivolts renders a millivolt value with one decimal place, e.g. 24123 -> "24.1".
// Rounds half away from zero.
func decivolts(mv int32) string {
	neg := mv < 0
	if neg {
		mv = -mv
	}
	tenths := (mv + 50) / 100
	s := itoa(int(tenths/10)) + "." + string(byte('0'+tenths%10))
	if neg && tenths != 0 {
		s = "-" + s
	}
	return s
}
