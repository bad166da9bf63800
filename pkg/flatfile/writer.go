package flatfile

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

var header = []string{"ticker", "volume", "open", "close", "high", "low", "window_start", "transactions"}

// Encode writes rows in the day file layout. It is used to build fixtures and test servers.
func Encode(w io.Writer, rows []Row) error {
	gz := gzip.NewWriter(w)
	cw := csv.NewWriter(gz)

	if err := cw.Write(header); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, r := range rows {
		rec := []string{
			r.Ticker,
			f(r.Volume),
			f(r.Open),
			f(r.Close),
			f(r.High),
			f(r.Low),
			strconv.FormatInt(r.WindowStart, 10),
			strconv.FormatInt(r.Transactions, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return gz.Close()
}
