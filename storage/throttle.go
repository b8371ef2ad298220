package storage

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// chunkSize is the largest write that passes through the limiter in one
// step. Small enough for smooth pacing, large enough to keep syscall
// overhead down.
const chunkSize = 32 * 1024

// throttledWriter meters writes through a per-stream token bucket. The
// bucket applies backpressure to the copy loop feeding it, so a slow rate
// pauses the file read instead of buffering the file in memory.
type throttledWriter struct {
	w       io.Writer
	ctx     context.Context
	limiter *rate.Limiter
}

// newThrottledWriter wraps w with a limiter at bytesPerSec. The burst is
// one chunk: responsive, but never more than a write-buffer of free data.
func newThrottledWriter(ctx context.Context, w io.Writer, bytesPerSec float64) *throttledWriter {
	return &throttledWriter{
		w:       w,
		ctx:     ctx,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), chunkSize),
	}
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n := min(len(p), chunkSize)

		// Blocks until tokens are available; returns early when the
		// client disconnects and the request context is cancelled.
		if err := t.limiter.WaitN(t.ctx, n); err != nil {
			return total, err
		}

		written, err := t.w.Write(p[:n])
		total += written
		if err != nil {
			return total, err
		}

		p = p[n:]
	}

	return total, nil
}
