package models

import "time"

// Fingerprint is the lowercase hex MD5 of a cached file's bytes.
type Fingerprint string

type DayState int

const (
	DayAbsent DayState = iota
	DayCachedEmpty
	DayCached
)

func (s DayState) String() string {
	switch s {
	case DayCachedEmpty:
		return "cached_empty"
	case DayCached:
		return "cached"
	default:
		return "absent"
	}
}

// DayOutcome is what a single reconciliation did for a day.
type DayOutcome string

const (
	OutcomeSkipped     DayOutcome = "skipped"
	OutcomeDownloaded  DayOutcome = "downloaded"
	OutcomeUpdated     DayOutcome = "updated"
	OutcomeMarkedEmpty DayOutcome = "marked_empty"
	OutcomeMalformed   DayOutcome = "malformed"
)

// Changed reports whether the raw cache content for the day changed.
func (o DayOutcome) Changed() bool {
	return o == OutcomeDownloaded || o == OutcomeUpdated || o == OutcomeMarkedEmpty
}

type DayRecord struct {
	AssetType   AssetType
	Day         time.Time
	Path        string
	State       DayState
	Fingerprint Fingerprint
	Outcome     DayOutcome
}
