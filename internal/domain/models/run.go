package models

import (
	"time"

	"github.com/google/uuid"
)

// RetrievalRun holds the counters of one sweep over an asset series.
type RetrievalRun struct {
	ID          string
	AssetType   AssetType
	StartedAt   time.Time
	FinishedAt  time.Time
	Current     time.Time
	Downloaded  int
	Updated     int
	Skipped     int
	MarkedEmpty int
	Err         string
}

func NewRetrievalRun(asset AssetType) *RetrievalRun {
	return &RetrievalRun{
		ID:        uuid.NewString(),
		AssetType: asset,
		StartedAt: time.Now().UTC(),
	}
}

// Record bumps the counter that matches the outcome.
func (r *RetrievalRun) Record(o DayOutcome) {
	switch o {
	case OutcomeDownloaded:
		r.Downloaded++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeMarkedEmpty:
		r.MarkedEmpty++
	default:
		r.Skipped++
	}
}

// Totals returns the counters keyed by outcome.
func (r *RetrievalRun) Totals() map[string]int {
	return map[string]int{
		string(OutcomeDownloaded):  r.Downloaded,
		string(OutcomeUpdated):     r.Updated,
		string(OutcomeSkipped):     r.Skipped,
		string(OutcomeMarkedEmpty): r.MarkedEmpty,
	}
}

// Total is the number of days processed so far.
func (r *RetrievalRun) Total() int {
	return r.Downloaded + r.Updated + r.Skipped + r.MarkedEmpty
}

func (r *RetrievalRun) Done() bool {
	return !r.FinishedAt.IsZero()
}
