package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// StatsDownloads returns every download counter.
func (a *API) StatsDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, a.Ledger.AllStats())
}

// StatsRanking returns the most downloaded files, count descending.
func (a *API) StatsRanking(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	c.JSON(http.StatusOK, a.Ledger.Ranking(limit))
}
