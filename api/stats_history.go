package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"insoft/depot-api/model"
	"insoft/depot-api/uagent"

	"github.com/gin-gonic/gin"
)

// historyEntry is a DownloadHistoryEntry enriched for display: the raw
// user agent is classified into browser/os labels at read time.
type historyEntry struct {
	model.DownloadHistoryEntry
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Bot     bool   `json:"bot"`
}

// StatsHistory returns the download history, newest first, filtered by
// file category and date range, paginated.
func (a *API) StatsHistory(c *gin.Context) {
	history := a.Ledger.History()
	metadata := a.Meta.All()

	fileType := c.DefaultQuery("fileType", "all")
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")

	filtered := history

	if fileType != "all" {
		byName := make(map[string]string, len(metadata))
		for _, m := range metadata {
			byName[m.Filename] = m.FileTypeID()
			byName[m.OriginalName] = m.FileTypeID()
		}

		kept := filtered[:0:0]
		for _, e := range filtered {
			if byName[e.Filename] == fileType {
				kept = append(kept, e)
			}
		}
		filtered = kept
	}

	if start, err := time.Parse("2006-01-02", startDate); err == nil {
		kept := filtered[:0:0]
		for _, e := range filtered {
			if !e.Timestamp.Before(start) {
				kept = append(kept, e)
			}
		}
		filtered = kept
	}

	if end, err := time.Parse("2006-01-02", endDate); err == nil {
		end = end.Add(24*time.Hour - time.Nanosecond)
		kept := filtered[:0:0]
		for _, e := range filtered {
			if !e.Timestamp.After(end) {
				kept = append(kept, e)
			}
		}
		filtered = kept
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	total := len(filtered)
	startIdx := min((page-1)*limit, total)
	endIdx := min(startIdx+limit, total)

	entries := make([]historyEntry, 0, endIdx-startIdx)
	for _, e := range filtered[startIdx:endIdx] {
		info := uagent.Classify(e.UserAgent)
		entries = append(entries, historyEntry{
			DownloadHistoryEntry: e,
			Browser:              info.Browser,
			OS:                   info.OS,
			Bot:                  uagent.IsBot(e.UserAgent),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"history":            entries,
		"total":              total,
		"page":               page,
		"limit":              limit,
		"totalPages":         (total + limit - 1) / limit,
		"availableFileTypes": a.Meta.FileTypes(),
		"filters": gin.H{
			"fileType":  fileType,
			"startDate": startDate,
			"endDate":   endDate,
		},
	})
}
