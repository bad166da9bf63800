package usecase

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/flatfile"
	"FlatPull/internal/service/retry"
	"FlatPull/pkg/util"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type instantTimer struct{ c chan time.Time }

func (t *instantTimer) Start(time.Duration) {
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

func testPolicy(attempts int) *retry.Policy {
	return retry.New(retry.WithMaxAttempts(attempts), retry.WithTimer(&instantTimer{}))
}

func md5Hex(b []byte) models.Fingerprint {
	sum := md5.Sum(b)
	return models.Fingerprint(hex.EncodeToString(sum[:]))
}

// fakeRemote serves day files from memory and answers conditional requests by MD5.
type fakeRemote struct {
	mu     sync.Mutex
	files  map[string][]byte
	errs   map[string]error
	calls  []models.DayFileRequest
	before func(req models.DayFileRequest)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string][]byte{}, errs: map[string]error{}}
}

func (f *fakeRemote) put(d time.Time, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[util.FormatDay(d)] = data
}

func (f *fakeRemote) fail(d time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[util.FormatDay(d)] = err
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) FetchDayFile(_ context.Context, req models.DayFileRequest) (models.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	before := f.before
	key := util.FormatDay(req.Day)
	err := f.errs[key]
	data, ok := f.files[key]
	f.mu.Unlock()

	if before != nil {
		before(req)
	}
	if err != nil {
		return models.FetchResult{}, err
	}
	if !ok {
		return models.NotFound(), nil
	}
	fp := md5Hex(data)
	if req.IfNoneMatch == fp {
		return models.Unchanged(), nil
	}
	return models.Found(data, fp), nil
}

func dayFile(t *testing.T, rows ...flatfile.Row) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, flatfile.Encode(&buf, rows))
	return buf.Bytes()
}

func row(ticker string, at time.Time, price float64) flatfile.Row {
	return flatfile.Row{
		Ticker:      ticker,
		Volume:      100,
		Open:        price,
		Close:       price + 1,
		High:        price + 2,
		Low:         price - 1,
		WindowStart: at.UnixNano(),
	}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.DayEvent
}

func (r *recordingEvents) PublishDay(_ context.Context, ev models.DayEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) Close() error { return nil }

// sourceFunc adapts a function to repository.DayFileSource.
type sourceFunc func(context.Context, models.DayFileRequest) (models.FetchResult, error)

func (f sourceFunc) FetchDayFile(ctx context.Context, req models.DayFileRequest) (models.FetchResult, error) {
	return f(ctx, req)
}
