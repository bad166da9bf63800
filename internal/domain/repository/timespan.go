package repository

// Timespan is the bar resolution requested from the aggregates API.
type Timespan string

const (
	TimespanSecond Timespan = "second"
	TimespanMinute Timespan = "minute"
	TimespanHour   Timespan = "hour"
	TimespanDay    Timespan = "day"
)

func IsValidTimespan(ts Timespan) bool {
	switch ts {
	case TimespanSecond, TimespanMinute, TimespanHour, TimespanDay:
		return true
	default:
		return false
	}
}

// DefaultTimespan matches the resolution of the flat files.
func DefaultTimespan() Timespan { return TimespanMinute }

// NormalizeTimespan converts raw string to a valid timespan (or default).
func NormalizeTimespan(s string) Timespan {
	if s == "" {
		return DefaultTimespan()
	}
	ts := Timespan(s)
	if IsValidTimespan(ts) {
		return ts
	}
	return DefaultTimespan()
}
