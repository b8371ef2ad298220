package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatsOverview returns the dashboard aggregates: totals plus rolling
// day/week/month counts derived from the bounded history.
func (a *API) StatsOverview(c *gin.Context) {
	stats := a.Ledger.AllStats()
	history := a.Ledger.History()

	totalDownloads := 0
	for _, s := range stats {
		totalDownloads += s.DownloadCount
	}

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)

	var today, week, month int
	for _, e := range history {
		ts := e.Timestamp
		if !ts.Before(dayStart) {
			today++
		}
		if !ts.Before(weekAgo) {
			week++
		}
		if !ts.Before(monthAgo) {
			month++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"totalFiles":     len(stats),
		"totalDownloads": totalDownloads,
		"todayDownloads": today,
		"weekDownloads":  week,
		"monthDownloads": month,
		"topFiles":       a.Ledger.Ranking(5),
	})
}
