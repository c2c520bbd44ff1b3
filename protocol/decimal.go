package protocol

import "math"

// ParseDecimal parses a signed decimal integer the way a C "%d" scan does:
// leading white space is skipped, an optional sign is accepted, and digits are
// consumed up to the first non-digit. Input without any digits yields 0.
// Values beyond the int32 range saturate.
func ParseDecimal(s string) int32 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	negative := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		negative = s[i] == '-'
		i++
	}

	var v int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		v = v*10 + int64(s[i]-'0')
		if v > math.MaxInt32+1 {
			v = math.MaxInt32 + 1
		}
	}

	if negative {
		v = -v
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// AppendUint appends the decimal form of v to b without going through fmt
func AppendUint(b []byte, v uint64) []byte {
	var buf [20]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(b, buf[pos:]...)
}

// AppendInt appends the signed decimal form of v to b
func AppendInt(b []byte, v int64) []byte {
	if v < 0 {
		b = append(b, '-')
		// Negate in unsigned space so math.MinInt64 survives
		return AppendUint(b, uint64(^v)+1)
	}
	return AppendUint(b, uint64(v))
}

// AppendPadded appends v right-justified in a field of width columns.
// Values wider than the field are written in full, as printf does.
func AppendPadded(b []byte, v uint32, width int) []byte {
	var buf [10]byte
	pos := len(buf)
	for {
		pos--
		buf[pos] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	for pad := width - (len(buf) - pos); pad > 0; pad-- {
		b = append(b, ' ')
	}
	return append(b, buf[pos:]...)
}
