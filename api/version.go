package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// Version is the portal's release version, set via ldflags on builds.
var Version = "dev"

func (a *API) VersionInfo(c *gin.Context) {
	mode := "development"
	if gin.Mode() == gin.ReleaseMode {
		mode = "production"
	}

	c.JSON(http.StatusOK, gin.H{
		"project":   Version,
		"go":        runtime.Version(),
		"startTime": a.started.UTC().Format("2006-01-02 15:04:05"),
		"mode":      mode,
	})
}
