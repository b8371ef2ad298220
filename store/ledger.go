package store

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"insoft/depot-api/model"

	"go.uber.org/zap"
)

// maxHistoryEntries bounds the history log. Oldest entries are evicted
// first; history is recent-activity analytics, not a full audit trail.
const maxHistoryEntries = 1000

// Locator enriches a download event with geolocation data. Lookup never
// fails, a nil result simply means no location is available.
type Locator interface {
	Lookup(ctx context.Context, ip string) *model.LocationInfo
}

// Ledger persists per-file download counters and the bounded download
// history. All writes funnel through one mutex so concurrent downloads
// can't lose counter updates to read-modify-write races.
type Ledger struct {
	statsPath   string
	historyPath string
	geo         Locator

	mu sync.Mutex
}

func NewLedger(dataDir string, geo Locator) *Ledger {
	return &Ledger{
		statsPath:   filepath.Join(dataDir, "download-stats.json"),
		historyPath: filepath.Join(dataDir, "download-history.json"),
		geo:         geo,
	}
}

// RecordDownload registers one download of filename. The counter update,
// the geolocation enrichment and the history append are all best-effort:
// persistence failures are logged and swallowed because the caller has
// already started streaming the file and must not observe them.
func (l *Ledger) RecordDownload(ctx context.Context, filename, ip, userAgent string) {
	now := time.Now().UTC()

	l.mu.Lock()
	var stats []model.DownloadRecord
	if err := readJSON(l.statsPath, &stats); err != nil {
		zap.L().Error("Failed to read download stats", zap.Error(err))
	}

	var total int
	found := false
	for i := range stats {
		if stats[i].Filename == filename {
			stats[i].DownloadCount++
			stats[i].LastDownload = now
			total = stats[i].DownloadCount
			found = true
			break
		}
	}

	if !found {
		stats = append(stats, model.DownloadRecord{
			Filename:      filename,
			DownloadCount: 1,
			FirstDownload: now,
			LastDownload:  now,
		})
		total = 1
	}

	if err := writeJSON(l.statsPath, stats); err != nil {
		zap.L().Error("Failed to save download stats", zap.Error(err))
	}
	l.mu.Unlock()

	// Enrichment happens outside the lock, the provider call can be slow
	var location *model.LocationInfo
	if l.geo != nil {
		location = l.geo.Lookup(ctx, ip)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var history []model.DownloadHistoryEntry
	if err := readJSON(l.historyPath, &history); err != nil {
		zap.L().Error("Failed to read download history", zap.Error(err))
	}

	history = append(history, model.DownloadHistoryEntry{
		Filename:  filename,
		Timestamp: now,
		IP:        ip,
		UserAgent: userAgent,
		Location:  location,
	})

	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}

	if err := writeJSON(l.historyPath, history); err != nil {
		zap.L().Error("Failed to save download history", zap.Error(err))
	}

	zap.L().Debug("Download recorded",
		zap.String("filename", filename),
		zap.Int("total", total),
	)
}

// DownloadCount returns the recorded downloads for filename, 0 when the
// file was never downloaded.
func (l *Ledger) DownloadCount(filename string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats []model.DownloadRecord
	if err := readJSON(l.statsPath, &stats); err != nil {
		zap.L().Error("Failed to read download stats", zap.Error(err))
		return 0
	}

	for _, r := range stats {
		if r.Filename == filename {
			return r.DownloadCount
		}
	}

	return 0
}

// AllStats returns every download counter in storage order.
func (l *Ledger) AllStats() []model.DownloadRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats []model.DownloadRecord
	if err := readJSON(l.statsPath, &stats); err != nil {
		zap.L().Error("Failed to read download stats", zap.Error(err))
	}

	if stats == nil {
		stats = []model.DownloadRecord{}
	}

	return stats
}

// Ranking returns the top-limit counters by download count. The sort is
// stable so ties keep their storage order.
func (l *Ledger) Ranking(limit int) []model.DownloadRecord {
	stats := l.AllStats()

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].DownloadCount > stats[j].DownloadCount
	})

	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}

	return stats
}

// History returns the stored history entries in insertion order.
func (l *Ledger) History() []model.DownloadHistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var history []model.DownloadHistoryEntry
	if err := readJSON(l.historyPath, &history); err != nil {
		zap.L().Error("Failed to read download history", zap.Error(err))
	}

	if history == nil {
		history = []model.DownloadHistoryEntry{}
	}

	return history
}

// Purge drops the counter and history entries for filename. Called when
// the owning file is deleted so stale records don't accumulate.
func (l *Ledger) Purge(filename string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats []model.DownloadRecord
	if err := readJSON(l.statsPath, &stats); err != nil {
		zap.L().Error("Failed to read download stats", zap.Error(err))
		return
	}

	kept := stats[:0]
	for _, r := range stats {
		if r.Filename != filename {
			kept = append(kept, r)
		}
	}

	if len(kept) != len(stats) {
		if err := writeJSON(l.statsPath, kept); err != nil {
			zap.L().Error("Failed to save download stats", zap.Error(err))
		}
	}

	var history []model.DownloadHistoryEntry
	if err := readJSON(l.historyPath, &history); err != nil {
		zap.L().Error("Failed to read download history", zap.Error(err))
		return
	}

	keptHistory := history[:0]
	for _, e := range history {
		if e.Filename != filename {
			keptHistory = append(keptHistory, e)
		}
	}

	if len(keptHistory) != len(history) {
		if err := writeJSON(l.historyPath, keptHistory); err != nil {
			zap.L().Error("Failed to save download history", zap.Error(err))
		}
	}
}
