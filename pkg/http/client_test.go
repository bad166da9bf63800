package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndParseDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(`{"status":"OK","count":2}`))
	}))
	defer srv.Close()

	var out struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		Headers:     map[string]string{"Authorization": "Bearer k"},
		QueryParams: map[string][]string{"sort": {"asc"}},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "OK", out.Status)
	assert.Equal(t, 2, out.Count)
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(err))
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ERR_RATE_LIMITED", appErr.Code)
	assert.Contains(t, appErr.Error(), "slow down")
}
