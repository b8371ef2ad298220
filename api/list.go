package api

import (
	"errors"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"insoft/depot-api/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type listedFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"uploadTime"`
}

// FileList returns the files under the storage root, newest first.
// Subdirectories (the legacy hierarchical layout) are skipped, the flat
// layout is the canonical one.
func (a *API) FileList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	entries, err := os.ReadDir(a.Files.Dir())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to list files",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read storage root", zap.Error(err))
		return
	}

	files := []listedFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, listedFile{
			Name:       entry.Name(),
			Path:       "/" + entry.Name(),
			Size:       info.Size(),
			UploadTime: info.ModTime().UTC(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadTime.After(files[j].UploadTime)
	})

	c.JSON(http.StatusOK, files)
}

type deleteBody struct {
	FilePath string `json:"filePath"`
}

// FileDelete removes a stored file together with its metadata record and
// download counter, so the stores don't accumulate orphans.
func (a *API) FileDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data deleteBody
	if err := c.ShouldBindJSON(&data); err != nil || data.FilePath == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file path provided",
			"requestID": requestID,
		})
		return
	}

	filename := strings.TrimPrefix(data.FilePath, "/")

	abs, _, err := a.Files.Stat(filename)
	if err != nil {
		if errors.Is(err, storage.ErrOutsideRoot) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":     "Access denied",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "File not found",
			"requestID": requestID,
		})
		return
	}

	if err := os.Remove(abs); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to delete file",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete file", zap.String("path", abs), zap.Error(err))
		return
	}

	if err := a.Meta.Remove(filename); err != nil {
		zap.L().Error("Failed to remove file metadata", zap.Error(err))
	}
	a.Ledger.Purge(filename)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
