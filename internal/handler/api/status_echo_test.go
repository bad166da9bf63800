package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlatPull/internal/domain/models"
	"FlatPull/internal/usecase"
	xlogger "FlatPull/pkg/logger"
)

func newTestEcho(board *usecase.ProgressBoard) *echo.Echo {
	e := echo.New()
	NewStatusEchoHandler(xlogger.NewNop(), board).RegisterRoutes(e)
	return e
}

func serve(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestStatusLists(t *testing.T) {
	board := usecase.NewProgressBoard()
	board.Update(models.RetrievalRun{
		ID:         "run-1",
		AssetType:  models.AssetStocks,
		Current:    time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		Downloaded: 4,
	})

	rec := serve(newTestEcho(board), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.RunStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "run-1", body.Data[0].RunID)
	assert.Equal(t, "2025-01-06", body.Data[0].CurrentDay)
	assert.Equal(t, 4, body.Data[0].Downloaded)
	assert.False(t, body.Data[0].Done)
}

func TestAssetStatus(t *testing.T) {
	board := usecase.NewProgressBoard()
	board.Finish(models.RetrievalRun{
		AssetType:  models.AssetCrypto,
		FinishedAt: time.Now(),
		Skipped:    2,
	})
	e := newTestEcho(board)

	rec := serve(e, "/api/status/crypto")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.RunStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Done)
	assert.Equal(t, 2, body.Data.Skipped)
	assert.Equal(t, http.StatusOK, serve(e, "/api/status/Crypto").Code)

	assert.Equal(t, http.StatusNotFound, serve(e, "/api/status/forex").Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, "/api/status/bonds").Code)
}

func TestHealth(t *testing.T) {
	rec := serve(newTestEcho(usecase.NewProgressBoard()), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
