package flatfile

import (
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func gzipCSV(t *testing.T, w io.Writer, content string) {
	t.Helper()
	gz := gzip.NewWriter(w)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
}
