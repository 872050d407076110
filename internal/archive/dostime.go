package archive

import "time"

// maxDosYear is the last year the 7-bit year field can hold
const maxDosYear = 1980 + 127

// DosDate packs a calendar date as ((year-1980)<<9) | (month<<5) | day.
// Years before 1980 clamp to 1980-01-01 and years after 2107 to
// 2107-12-31.
func DosDate(t time.Time) uint16 {
	switch {
	case t.Year() < 1980:
		return 1<<5 | 1
	case t.Year() > maxDosYear:
		return uint16((maxDosYear-1980)<<9 | 12<<5 | 31)
	}
	return uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
}

// DosTime packs a time of day as (hour<<11) | (minute<<5) | (second>>1).
// Clamped dates get the matching end of day.
func DosTime(t time.Time) uint16 {
	switch {
	case t.Year() < 1980:
		return 0
	case t.Year() > maxDosYear:
		return 23<<11 | 59<<5 | 58>>1
	}
	return uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()>>1)
}

// DosDateTime returns both packed fields for t
func DosDateTime(t time.Time) (date, tm uint16) {
	return DosDate(t), DosTime(t)
}

// ParseDosDateTime unpacks a DOS date and time in the local zone
func ParseDosDateTime(date, tm uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0x0F),
		int(date&0x1F),
		int(tm>>11),
		int(tm>>5&0x3F),
		int(tm&0x1F)*2,
		0,
		time.Local,
	)
}
