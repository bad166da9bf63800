package models

import (
	"fmt"
	"strings"
	"time"

	"FlatPull/pkg/util"
)

type AssetType string

const (
	AssetStocks  AssetType = "stocks"
	AssetOptions AssetType = "options"
	AssetCrypto  AssetType = "crypto"
	AssetForex   AssetType = "forex"
)

// AllAssetTypes is the fixed processing order of a full sweep.
var AllAssetTypes = []AssetType{AssetStocks, AssetOptions, AssetCrypto, AssetForex}

func ParseAssetType(s string) (AssetType, error) {
	a := AssetType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllAssetTypes {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown asset type %q", s)
}

// Title is used in human-facing summaries ("Stocks files summary: ...").
func (a AssetType) Title() string {
	if a == "" {
		return ""
	}
	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

// MatchKind selects how a requested symbol is compared with raw ticker values.
type MatchKind int

const (
	// MatchExact compares the raw ticker with the symbol as is.
	MatchExact MatchKind = iota
	// MatchTagged compares the raw ticker with Tag+symbol.
	MatchTagged
	// MatchUnderlying accepts any contract whose ticker starts with Tag+symbol
	// followed by the contract's expiry digits.
	MatchUnderlying
)

type TickerMatch struct {
	Kind MatchKind
	Tag  string
}

// Matches reports whether a raw flat-file ticker belongs to the given symbol.
func (m TickerMatch) Matches(raw, symbol string) bool {
	switch m.Kind {
	case MatchTagged:
		return raw == m.Tag+symbol
	case MatchUnderlying:
		prefix := m.Tag + symbol
		if !strings.HasPrefix(raw, prefix) {
			return false
		}
		rest := raw[len(prefix):]
		return rest != "" && rest[0] >= '0' && rest[0] <= '9'
	default:
		return raw == symbol
	}
}

// HasAPITickers reports whether each symbol maps onto a single REST ticker.
func (m TickerMatch) HasAPITickers() bool { return m.Kind != MatchUnderlying }

// APITicker returns the symbol as the REST API expects it, or false when the
// asset class has no single ticker per symbol.
func (m TickerMatch) APITicker(symbol string) (string, bool) {
	switch m.Kind {
	case MatchExact:
		return symbol, true
	case MatchTagged:
		return m.Tag + symbol, true
	default:
		return "", false
	}
}

// SeriesSpec is the static description of an asset class on the remote store.
type SeriesSpec struct {
	RemotePrefix  string
	AvailableFrom time.Time
	Match         TickerMatch
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Catalog lists every supported asset class.
var Catalog = map[AssetType]SeriesSpec{
	AssetStocks: {
		RemotePrefix:  "us_stocks_sip",
		AvailableFrom: day(2003, time.October, 1),
		Match:         TickerMatch{Kind: MatchExact},
	},
	AssetOptions: {
		RemotePrefix:  "us_options_opra",
		AvailableFrom: day(2014, time.June, 1),
		Match:         TickerMatch{Kind: MatchUnderlying, Tag: "O:"},
	},
	AssetCrypto: {
		RemotePrefix:  "global_crypto",
		AvailableFrom: day(2013, time.November, 1),
		Match:         TickerMatch{Kind: MatchTagged, Tag: "X:"},
	},
	AssetForex: {
		RemotePrefix:  "global_forex",
		AvailableFrom: day(2009, time.October, 1),
		Match:         TickerMatch{Kind: MatchTagged, Tag: "C:"},
	},
}

// AssetSeries is one asset class over a requested [Start, End) window.
type AssetSeries struct {
	AssetType     AssetType
	RemotePrefix  string
	AvailableFrom time.Time
	Start         time.Time
	End           time.Time
	Tickers       []string
	Match         TickerMatch
}

// NewAssetSeries resolves an asset class from the catalog. Tickers are uppercased.
func NewAssetSeries(asset AssetType, start, end time.Time, tickers []string) (AssetSeries, error) {
	spec, ok := Catalog[asset]
	if !ok {
		return AssetSeries{}, fmt.Errorf("unknown asset type %q", asset)
	}
	upper := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			upper = append(upper, t)
		}
	}
	return AssetSeries{
		AssetType:     asset,
		RemotePrefix:  spec.RemotePrefix,
		AvailableFrom: spec.AvailableFrom,
		Start:         util.TruncateDay(start),
		End:           util.TruncateDay(end),
		Tickers:       upper,
		Match:         spec.Match,
	}, nil
}

// EffectiveStart is the later of the requested start and the availability floor.
func (s AssetSeries) EffectiveStart() time.Time {
	return util.MaxTime(s.Start, s.AvailableFrom)
}

// IsEmpty reports whether no day of the window can have data.
func (s AssetSeries) IsEmpty() bool {
	return !s.EffectiveStart().Before(s.End)
}

// ObjectKey is the remote key of one day's flat file.
func ObjectKey(prefix string, day time.Time) string {
	return fmt.Sprintf("%s/minute_aggs_v1/%s/%s.csv.gz", prefix, day.Format("2006/01"), day.Format(util.DayLayout))
}
