package models

import "time"

type FetchStatus int

// The zero value is invalid so an empty FetchResult is never mistaken for an answer.
const (
	FetchInvalid FetchStatus = iota
	FetchUnchanged
	FetchNotFound
	FetchFound
)

func (s FetchStatus) String() string {
	switch s {
	case FetchNotFound:
		return "not_found"
	case FetchFound:
		return "found"
	case FetchUnchanged:
		return "unchanged"
	default:
		return "invalid"
	}
}

// FetchResult is the outcome of a remote fetch. Data and Fingerprint are set
// only when Status is FetchFound.
type FetchResult struct {
	Status      FetchStatus
	Data        []byte
	Fingerprint Fingerprint
}

func Unchanged() FetchResult { return FetchResult{Status: FetchUnchanged} }

func NotFound() FetchResult { return FetchResult{Status: FetchNotFound} }

func Found(data []byte, fp Fingerprint) FetchResult {
	return FetchResult{Status: FetchFound, Data: data, Fingerprint: fp}
}

// DayFileRequest asks for one day's flat file, conditionally when IfNoneMatch is set.
type DayFileRequest struct {
	AssetType    AssetType
	RemotePrefix string
	Day          time.Time
	IfNoneMatch  Fingerprint
}

// AggregateRequest asks the REST API for bars over [From, To] inclusive.
type AggregateRequest struct {
	Ticker     string
	From       time.Time
	To         time.Time
	Multiplier int
	Timespan   string
}
