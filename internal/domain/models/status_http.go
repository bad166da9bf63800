package models

import "time"

// Requests and views of the status endpoints.

type StatusRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required"`
}

type RunStatus struct {
	RunID       string     `json:"run_id"`
	AssetType   AssetType  `json:"asset_type"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CurrentDay  string     `json:"current_day,omitempty"`
	Downloaded  int        `json:"downloaded"`
	Updated     int        `json:"updated"`
	Skipped     int        `json:"skipped"`
	MarkedEmpty int        `json:"marked_empty"`
	Done        bool       `json:"done"`
	Error       string     `json:"error,omitempty"`
}

func NewRunStatus(r RetrievalRun) RunStatus {
	s := RunStatus{
		RunID:       r.ID,
		AssetType:   r.AssetType,
		StartedAt:   r.StartedAt,
		Downloaded:  r.Downloaded,
		Updated:     r.Updated,
		Skipped:     r.Skipped,
		MarkedEmpty: r.MarkedEmpty,
		Done:        r.Done(),
		Error:       r.Err,
	}
	if !r.Current.IsZero() {
		s.CurrentDay = r.Current.Format("2006-01-02")
	}
	if r.Done() {
		finished := r.FinishedAt
		s.FinishedAt = &finished
	}
	return s
}
