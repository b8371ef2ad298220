package storage

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, size int) (string, []byte) {
	t.Helper()

	data := bytes.Repeat([]byte{0xAB}, size)
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path, data
}

func TestStreamUnlimited(t *testing.T) {
	path, data := writeTestFile(t, 256*1024)

	rec := httptest.NewRecorder()
	n, err := Stream(context.Background(), rec, path, "app setup.exe", int64(len(data)), 0)

	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="app%20setup.exe"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "262144", rec.Header().Get("Content-Length"))
}

func TestStreamThrottleAppliesFloor(t *testing.T) {
	// 128 KiB at 0.25 MB/s with a 32 KiB burst has to take at least
	// (128-32)/256 KiB/s = 375ms; allow generous scheduler slack.
	path, data := writeTestFile(t, 128*1024)

	rec := httptest.NewRecorder()
	start := time.Now()
	n, err := Stream(context.Background(), rec, path, "payload.bin", int64(len(data)), 0.25)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
}

func TestStreamStopsOnCancelledContext(t *testing.T) {
	path, data := writeTestFile(t, 512*1024)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	rec := httptest.NewRecorder()
	n, err := Stream(ctx, rec, path, "payload.bin", int64(len(data)), 0.1)

	assert.Error(t, err)
	assert.Less(t, n, int64(len(data)))
}

func TestStreamMissingFile(t *testing.T) {
	rec := httptest.NewRecorder()

	_, err := Stream(context.Background(), rec, filepath.Join(t.TempDir(), "gone.bin"), "gone.bin", 0, 0)
	assert.Error(t, err)
	// Nothing sent: the handler can still answer with a clean 500
	assert.Empty(t, rec.Body.Bytes())
}
