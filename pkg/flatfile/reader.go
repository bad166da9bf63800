// Package flatfile decodes the gzip compressed CSV day files of minute aggregates.
package flatfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

var ErrMalformed = errors.New("flatfile: malformed content")

// Row is one minute aggregate as it appears in a day file.
type Row struct {
	Ticker       string
	Volume       float64
	Open         float64
	Close        float64
	High         float64
	Low          float64
	WindowStart  int64 // nanoseconds since epoch, UTC
	Transactions int64
}

var requiredColumns = []string{"ticker", "volume", "open", "close", "high", "low", "window_start"}

// Reader streams rows from a compressed day file.
type Reader struct {
	gz   *gzip.Reader
	csv  *csv.Reader
	cols map[string]int
	line int
}

// NewReader reads the gzip and CSV headers. An empty stream or a missing column is ErrMalformed.
func NewReader(r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrMalformed, err)
	}

	cr := csv.NewReader(gz)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		gz.Close()
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			gz.Close()
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
	}

	return &Reader{gz: gz, csv: cr, cols: cols, line: 1}, nil
}

// Next returns the next row, or io.EOF at the end of the file.
func (r *Reader) Next() (Row, error) {
	rec, err := r.csv.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		return Row{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, r.line+1, err)
	}
	r.line++

	var row Row
	var perr error
	field := func(name string) string {
		i, ok := r.cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	float := func(name string) float64 {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil && perr == nil {
			perr = fmt.Errorf("%w: line %d: %s: %v", ErrMalformed, r.line, name, err)
		}
		return v
	}

	row.Ticker = field("ticker")
	row.Volume = float("volume")
	row.Open = float("open")
	row.Close = float("close")
	row.High = float("high")
	row.Low = float("low")
	row.WindowStart, err = strconv.ParseInt(field("window_start"), 10, 64)
	if err != nil && perr == nil {
		perr = fmt.Errorf("%w: line %d: window_start: %v", ErrMalformed, r.line, err)
	}
	if s := field("transactions"); s != "" {
		row.Transactions, _ = strconv.ParseInt(s, 10, 64)
	}
	if perr != nil {
		return Row{}, perr
	}
	return row, nil
}

// Each calls fn for every row until the end of the file.
func (r *Reader) Each(fn func(Row) error) error {
	for {
		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func (r *Reader) Close() error {
	return r.gz.Close()
}

// IsGzip reports whether b starts with a valid gzip header.
func IsGzip(b []byte) bool {
	if len(b) < 2 || b[0] != 0x1f || b[1] != 0x8b {
		return false
	}
	gz, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return false
	}
	gz.Close()
	return true
}
