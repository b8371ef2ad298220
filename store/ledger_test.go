package store

import (
	"context"
	"fmt"
	"testing"

	"insoft/depot-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLocator returns a fixed location, or nil to simulate failed or
// disabled enrichment.
type stubLocator struct {
	location *model.LocationInfo
	calls    int
}

func (s *stubLocator) Lookup(_ context.Context, _ string) *model.LocationInfo {
	s.calls++
	return s.location
}

func TestRecordDownloadCounters(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{})
	ctx := context.Background()

	const n = 5
	for range n {
		l.RecordDownload(ctx, "app1-setup.exe", "203.0.113.7", "curl/8.4.0")
	}

	assert.Equal(t, n, l.DownloadCount("app1-setup.exe"))
	assert.Equal(t, 0, l.DownloadCount("never-downloaded.exe"))

	stats := l.AllStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "app1-setup.exe", stats[0].Filename)
	assert.Equal(t, n, stats[0].DownloadCount)
	assert.False(t, stats[0].FirstDownload.After(stats[0].LastDownload))
}

func TestRecordDownloadFirstTimestampSticks(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{})
	ctx := context.Background()

	l.RecordDownload(ctx, "a.exe", "203.0.113.7", "ua")
	first := l.AllStats()[0].FirstDownload

	l.RecordDownload(ctx, "a.exe", "203.0.113.7", "ua")
	l.RecordDownload(ctx, "a.exe", "203.0.113.7", "ua")

	stats := l.AllStats()
	assert.Equal(t, first, stats[0].FirstDownload)
	assert.False(t, stats[0].LastDownload.Before(first))
}

func TestHistoryBounded(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{})
	ctx := context.Background()

	for i := range 1500 {
		l.RecordDownload(ctx, "a.exe", "203.0.113.7", fmt.Sprintf("ua-%04d", i))
	}

	history := l.History()
	require.Len(t, history, 1000)

	// The newest 1000 survive, in insertion order
	assert.Equal(t, "ua-0500", history[0].UserAgent)
	assert.Equal(t, "ua-1499", history[999].UserAgent)
}

func TestRecordDownloadEnrichment(t *testing.T) {
	loc := &model.LocationInfo{Country: "US", City: "Ashburn"}
	l := NewLedger(t.TempDir(), &stubLocator{location: loc})

	l.RecordDownload(context.Background(), "a.exe", "203.0.113.7", "ua")

	history := l.History()
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Location)
	assert.Equal(t, "US", history[0].Location.Country)
	assert.Equal(t, "Ashburn", history[0].Location.City)
}

func TestRecordDownloadSurvivesNilEnrichment(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{location: nil})

	assert.NotPanics(t, func() {
		l.RecordDownload(context.Background(), "a.exe", "203.0.113.7", "ua")
	})

	history := l.History()
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Location)
	assert.Equal(t, 1, l.DownloadCount("a.exe"))
}

func TestRanking(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{})
	ctx := context.Background()

	for range 3 {
		l.RecordDownload(ctx, "popular.exe", "203.0.113.7", "ua")
	}
	l.RecordDownload(ctx, "first-tied.exe", "203.0.113.7", "ua")
	l.RecordDownload(ctx, "second-tied.exe", "203.0.113.7", "ua")

	ranking := l.Ranking(10)
	require.Len(t, ranking, 3)
	assert.Equal(t, "popular.exe", ranking[0].Filename)
	// Stable sort keeps storage order for ties
	assert.Equal(t, "first-tied.exe", ranking[1].Filename)
	assert.Equal(t, "second-tied.exe", ranking[2].Filename)

	top := l.Ranking(1)
	require.Len(t, top, 1)
	assert.Equal(t, "popular.exe", top[0].Filename)
}

func TestPurge(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{})
	ctx := context.Background()

	l.RecordDownload(ctx, "keep.exe", "203.0.113.7", "ua")
	l.RecordDownload(ctx, "drop.exe", "203.0.113.7", "ua")

	l.Purge("drop.exe")

	assert.Equal(t, 0, l.DownloadCount("drop.exe"))
	assert.Equal(t, 1, l.DownloadCount("keep.exe"))
	assert.Len(t, l.AllStats(), 1)

	history := l.History()
	require.Len(t, history, 1)
	assert.Equal(t, "keep.exe", history[0].Filename)
}

func TestConcurrentRecordsDontLoseUpdates(t *testing.T) {
	l := NewLedger(t.TempDir(), &stubLocator{})
	ctx := context.Background()

	done := make(chan struct{})
	const workers = 8
	const perWorker = 5

	for range workers {
		go func() {
			for range perWorker {
				l.RecordDownload(ctx, "hot.exe", "203.0.113.7", "ua")
			}
			done <- struct{}{}
		}()
	}

	for range workers {
		<-done
	}

	assert.Equal(t, workers*perWorker, l.DownloadCount("hot.exe"))
}
