package models

import "time"

// Bar is one normalized per-ticker row.
type Bar struct {
	Timestamp time.Time
	Ticker    string
	Open      float64
	Close     float64
	Low       float64
	High      float64
	Volume    float64
}

// Agg is one aggregate record as returned by the REST API.
type Agg struct {
	Timestamp    int64   `json:"t"`
	Open         float64 `json:"o"`
	High         float64 `json:"h"`
	Low          float64 `json:"l"`
	Close        float64 `json:"c"`
	Volume       float64 `json:"v"`
	VWAP         float64 `json:"vw"`
	Transactions int64   `json:"n"`
}

// Bar converts the record using the millisecond timestamp in loc.
func (a Agg) Bar(ticker string, loc *time.Location) Bar {
	return Bar{
		Timestamp: time.UnixMilli(a.Timestamp).In(loc),
		Ticker:    ticker,
		Open:      a.Open,
		Close:     a.Close,
		Low:       a.Low,
		High:      a.High,
		Volume:    a.Volume,
	}
}

// DayEvent is published after a day's cache content changed.
type DayEvent struct {
	RunID       string      `json:"run_id"`
	AssetType   AssetType   `json:"asset_type"`
	Day         string      `json:"day"`
	Outcome     DayOutcome  `json:"outcome"`
	Fingerprint Fingerprint `json:"fingerprint,omitempty"`
	At          time.Time   `json:"at"`
}
