package api

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"insoft/depot-api/metrics"
	"insoft/depot-api/storage"
	"insoft/depot-api/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// recordTimeout caps how long a fire-and-forget ledger update may spend,
// geolocation lookup included. It is detached from the request context on
// purpose: the response must never wait for it.
const recordTimeout = 30 * time.Second

// Download serves both addressing modes of the public download route.
// One path segment is the canonical flat lookup; five segments is the
// legacy {app}/{os}/{arch}/{versionType}/{filename} layout kept for
// deployments that still shard storage by category.
func (a *API) Download(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	raw := strings.Trim(c.Param("filepath"), "/")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file name provided",
			"requestID": requestID,
		})
		return
	}

	segments := strings.Split(raw, "/")
	if len(segments) != 1 && len(segments) != 5 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid download path",
			"requestID": requestID,
		})
		return
	}

	a.serveFile(c, segments)
}

// RootDownload handles the portal's shortest download URL, /{filename},
// for any name carrying an allowed upload extension. Registered as the
// NoRoute fallback so API routes keep precedence.
func (a *API) RootDownload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	name := strings.Trim(c.Request.URL.Path, "/")
	if c.Request.Method != http.MethodGet || name == "" || strings.Contains(name, "/") || !hasAllowedExtension(name) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Not found",
			"requestID": requestID,
		})
		return
	}

	a.serveFile(c, []string{name})
}

func hasAllowedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range viper.GetStringSlice("upload.allowed_extensions") {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}

	return false
}

// serveFile runs the download state machine: resolve, gate, stream. The
// ledger update starts the moment streaming is committed and never gates
// the bytes going out.
func (a *API) serveFile(c *gin.Context, segments []string) {
	requestID := c.MustGet("requestID").(string)
	filename := segments[len(segments)-1]

	abs, size, err := a.Files.Stat(segments...)
	if err != nil {
		if errors.Is(err, storage.ErrOutsideRoot) {
			metrics.Downloads.WithLabelValues("forbidden").Inc()

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Access denied",
				"requestID": requestID,
			})

			zap.L().Warn("Blocked path traversal attempt",
				zap.String("path", path.Join(segments...)),
				zap.String("ip", util.ClientIP(c.Request)),
			)
			return
		}

		metrics.Downloads.WithLabelValues("not_found").Inc()

		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File not found",
			"requestID": requestID,
		})
		return
	}

	// Streaming is committed, record the download. "Recorded" means
	// delivery began, not that the client read every byte.
	ip := util.ClientIP(c.Request)
	userAgent := c.Request.UserAgent()
	if userAgent == "" {
		userAgent = "unknown"
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		a.Ledger.RecordDownload(ctx, filename, ip, userAgent)
	}()

	written, err := storage.Stream(
		c.Request.Context(),
		c.Writer,
		abs,
		filename,
		size,
		viper.GetFloat64("download.speed_limit_mbps"),
	)
	metrics.DownloadBytes.Add(float64(written))

	if err != nil {
		metrics.Downloads.WithLabelValues("failed").Inc()

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "File download failed",
				"requestID": requestID,
			})
		}

		// Headers already sent: nothing left to do but drop the
		// connection, which gin does when the handler returns.
		zap.L().Error("Download stream terminated",
			zap.String("filename", filename),
			zap.Int64("written", written),
			zap.Error(err),
		)
		return
	}

	metrics.Downloads.WithLabelValues("completed").Inc()
}
