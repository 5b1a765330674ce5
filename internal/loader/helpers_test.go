package loader

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCsv(t *testing.T, name, src string) string {
	t.Helper()

	fullPath := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(fullPath, []byte(src), 0o644)
	require.NoError(t, err)
	return fullPath
}

func writeGzCsv(t *testing.T, name, src string) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(src))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	fullPath := filepath.Join(t.TempDir(), name)
	err = os.WriteFile(fullPath, buf.Bytes(), 0o644)
	require.NoError(t, err)
	return fullPath
}
