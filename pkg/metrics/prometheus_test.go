package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := New()
	r.RecordDay("stocks", "downloaded")
	r.RecordDay("stocks", "downloaded")
	r.RecordRetry("fetch_day_file", "timeout")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.daysTotal.WithLabelValues("stocks", "downloaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retriesTotal.WithLabelValues("fetch_day_file", "timeout")))
}

func TestRecordRunSetsGauges(t *testing.T) {
	r := New()
	last := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	r.RecordRun("crypto", map[string]int{"downloaded": 3, "skipped": 7}, last)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.runDays.WithLabelValues("crypto", "downloaded")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.runDays.WithLabelValues("crypto", "skipped")))
	assert.Equal(t, float64(last.Unix()), testutil.ToFloat64(r.runLastDay.WithLabelValues("crypto")))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.RecordError("entitlement")

	path := filepath.Join(t.TempDir(), "flatpull.prom")
	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `flatpull_errors_total{type="entitlement"} 1`))
}
