package storage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
)

// Stream sends the file at absPath to w as a binary attachment. When
// limitMBps > 0 the bytes are paced through a per-stream token bucket at
// limitMBps * 1024 * 1024 bytes/second; 0 means full I/O speed.
//
// Headers are written before the first byte, so an I/O failure mid-copy
// can only terminate the connection, not change the status code. The
// returned byte count reflects what actually reached the client.
func Stream(ctx context.Context, w http.ResponseWriter, absPath, downloadName string, size int64, limitMBps float64) (int64, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+url.PathEscape(downloadName)+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	var dst io.Writer = w
	if limitMBps > 0 {
		dst = newThrottledWriter(ctx, w, limitMBps*1024*1024)
	}

	// Hide *os.File's WriteTo so the copy can't take the sendfile fast
	// path around the limiter.
	src := struct{ io.Reader }{f}

	buf := make([]byte, chunkSize)
	return io.CopyBuffer(dst, src, buf)
}
