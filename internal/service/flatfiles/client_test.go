package flatfiles

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/flatfile"
)

const objectPath = "/flatfiles/us_stocks_sip/minute_aggs_v1/2025/01/2025-01-03.csv.gz"

func dayFile(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, flatfile.Encode(&buf, []flatfile.Row{
		{Ticker: "SPY", Volume: 100, Open: 1, Close: 2, High: 3, Low: 0.5, WindowStart: 1735914600000000000},
	}))
	return buf.Bytes()
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		Endpoint:        srv.URL,
		Bucket:          "flatfiles",
		AccessKeyID:     "AKID",
		SecretAccessKey: "SECRET",
		Timeout:         5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func request(ifNoneMatch models.Fingerprint) models.DayFileRequest {
	return models.DayFileRequest{
		AssetType:    models.AssetStocks,
		RemotePrefix: "us_stocks_sip",
		Day:          time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		IfNoneMatch:  ifNoneMatch,
	}
}

func s3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + code + `</Code><Message>test</Message></Error>`))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{Endpoint: "http://localhost", Bucket: "flatfiles"}, nil)
	assert.ErrorIs(t, err, models.ErrMissingCredentials)
}

func TestFetchDayFileFound(t *testing.T) {
	body := dayFile(t)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, objectPath, r.URL.Path)
		assert.Empty(t, r.Header.Get("If-None-Match"))
		w.Header().Set("ETag", `"abc"`)
		_, _ = w.Write(body)
	})

	res, err := c.FetchDayFile(context.Background(), request(""))
	require.NoError(t, err)
	require.Equal(t, models.FetchFound, res.Status)
	assert.Equal(t, body, res.Data)

	sum := md5.Sum(body)
	assert.Equal(t, models.Fingerprint(hex.EncodeToString(sum[:])), res.Fingerprint)
}

func TestFetchDayFileConditionalUnchanged(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"0123abcd"`, r.Header.Get("If-None-Match"))
		w.WriteHeader(http.StatusNotModified)
	})

	res, err := c.FetchDayFile(context.Background(), request("0123abcd"))
	require.NoError(t, err)
	assert.Equal(t, models.FetchUnchanged, res.Status)
}

func TestFetchDayFileNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s3Error(w, http.StatusNotFound, "NoSuchKey")
	})

	res, err := c.FetchDayFile(context.Background(), request(""))
	require.NoError(t, err)
	assert.Equal(t, models.FetchNotFound, res.Status)
}

func TestFetchDayFileForbiddenIsEntitlement(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s3Error(w, http.StatusForbidden, "AccessDenied")
	})

	_, err := c.FetchDayFile(context.Background(), request(""))
	assert.ErrorIs(t, err, models.ErrEntitlement)
	assert.False(t, models.IsTransient(err))
}

func TestFetchDayFileThrottledIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		s3Error(w, http.StatusServiceUnavailable, "SlowDown")
	})

	_, err := c.FetchDayFile(context.Background(), request(""))
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
}

func TestFetchDayFileMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := c.FetchDayFile(context.Background(), request(""))
	assert.ErrorIs(t, err, models.ErrMalformedPayload)
}
