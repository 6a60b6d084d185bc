package ntfileinfo

import "time"

const (
	// TicksPerSecond is the number of 100ns intervals in one second.
	TicksPerSecond = 10_000_000

	// EpochOffsetTicks is the distance from 0001-01-01 to 1601-01-01 in
	// 100ns ticks (proleptic Gregorian).
	EpochOffsetTicks int64 = 504911232000000000

	// year1ToUnixSeconds is the distance from 0001-01-01 to 1970-01-01.
	year1ToUnixSeconds int64 = 62135596800

	epochOffsetSeconds = EpochOffsetTicks / TicksPerSecond
)

// TicksToTime converts an NT tick count (100ns since 1601-01-01 UTC) to a
// UTC time.Time. The conversion is exact.
func TicksToTime(ticks int64) time.Time {
	sec := ticks / TicksPerSecond
	rem := ticks % TicksPerSecond
	if rem < 0 {
		sec--
		rem += TicksPerSecond
	}
	// seconds since 0001-01-01, then shift to the Unix epoch
	sec += epochOffsetSeconds
	return time.Unix(sec-year1ToUnixSeconds, rem*100).UTC()
}

// TimeToTicks is the inverse of TicksToTime. Sub-100ns precision in t is
// truncated.
func TimeToTicks(t time.Time) int64 {
	sec := t.Unix() + year1ToUnixSeconds - epochOffsetSeconds
	return sec*TicksPerSecond + int64(t.Nanosecond())/100
}
