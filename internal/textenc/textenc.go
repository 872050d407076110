// Package textenc converts between UTF-8 byte strings and UTF-16 code
// unit buffers. Characters outside the Basic Multilingual Plane are not
// represented; each is replaced with a single Placeholder unit.
package textenc

import (
	"fmt"

	"github.com/Ning0612/sympack/internal/domain"
)

// Placeholder is emitted for every 4, 5 or 6 byte UTF-8 sequence
const Placeholder uint16 = 0xFF1F

// bom is the UTF-8 byte order mark
var bom = [3]byte{0xEF, 0xBB, 0xBF}

// UTF8ToUTF16 decodes src into UTF-16 code units. A leading byte order
// mark is skipped. The returned slice always has room for one more unit
// so callers can append a terminating NUL without reallocating.
func UTF8ToUTF16(src []byte) ([]uint16, error) {
	if len(src) >= 3 && src[0] == bom[0] && src[1] == bom[1] && src[2] == bom[2] {
		src = src[3:]
	}

	dst := make([]uint16, 0, len(src)+1)
	for i := 0; i < len(src); {
		c := src[i]
		n, ok := sequenceLength(c)
		if !ok {
			return nil, fmt.Errorf("%w: invalid lead byte 0x%02X at offset %d", domain.ErrEncoding, c, i)
		}
		if i+n > len(src) {
			return nil, fmt.Errorf("%w: truncated sequence at offset %d", domain.ErrEncoding, i)
		}
		for k := 1; k < n; k++ {
			if src[i+k]&0xC0 != 0x80 {
				return nil, fmt.Errorf("%w: invalid continuation byte 0x%02X at offset %d", domain.ErrEncoding, src[i+k], i+k)
			}
		}

		switch n {
		case 1:
			dst = append(dst, uint16(c))
		case 2:
			dst = append(dst, uint16(c&0x1F)<<6|uint16(src[i+1]&0x3F))
		case 3:
			dst = append(dst, uint16(c&0x0F)<<12|uint16(src[i+1]&0x3F)<<6|uint16(src[i+2]&0x3F))
		default:
			dst = append(dst, Placeholder)
		}
		i += n
	}
	return dst, nil
}

// sequenceLength returns the byte length implied by a lead byte
func sequenceLength(c byte) (int, bool) {
	switch {
	case c&0x80 == 0x00:
		return 1, true
	case c&0xE0 == 0xC0:
		return 2, true
	case c&0xF0 == 0xE0:
		return 3, true
	case c&0xF8 == 0xF0:
		return 4, true
	case c&0xFC == 0xF8:
		return 5, true
	case c&0xFE == 0xFC:
		return 6, true
	default:
		// 10xxxxxx, 0xFE, 0xFF
		return 0, false
	}
}

// UTF16ToUTF8 encodes src as UTF-8, stopping at the first NUL unit.
// Every unit in the 16-bit range has an encoding, so this cannot fail.
func UTF16ToUTF8(src []uint16) []byte {
	dst := make([]byte, 0, 3*len(src)+1)
	for _, u := range src {
		switch {
		case u == 0:
			return dst
		case u < 0x80:
			dst = append(dst, byte(u))
		case u < 0x800:
			dst = append(dst, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			dst = append(dst, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return dst
}

// UTF16FromString returns a NUL terminated code unit buffer for s,
// suitable for native wide-character calls.
func UTF16FromString(s string) ([]uint16, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return nil, fmt.Errorf("%w: NUL byte at offset %d", domain.ErrEncoding, i)
		}
	}
	units, err := UTF8ToUTF16([]byte(s))
	if err != nil {
		return nil, err
	}
	return append(units, 0), nil
}

// StringFromUTF16 decodes a code unit buffer, stopping at the first NUL
func StringFromUTF16(src []uint16) string {
	return string(UTF16ToUTF8(src))
}

// UTF16Len reports the number of code units s decodes to, excluding the terminator
func UTF16Len(s string) (int, error) {
	units, err := UTF8ToUTF16([]byte(s))
	if err != nil {
		return 0, err
	}
	return len(units), nil
}
