package api

import (
	"net/http"
	"path/filepath"
	"time"

	"insoft/depot-api/metrics"
	"insoft/depot-api/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FileUpload accepts a new package in the multipart field "package",
// categorized by the application/os/architecture/versionType form fields.
// Files are stored flat under the storage root using their original name;
// re-uploading the same name replaces the file.
func (a *API) FileUpload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("package")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return
	}

	application := c.PostForm("application")
	osName := c.PostForm("os")
	arch := c.PostForm("architecture")
	versionType := c.PostForm("versionType")

	if application == "" || osName == "" || arch == "" || versionType == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Missing application, os, architecture or versionType",
			"requestID": requestID,
		})
		return
	}

	// Uploads always land at the top of the storage root, so the stored
	// name is the plain basename of what the client sent.
	filename := filepath.Base(fh.Filename)
	if filename == "." || filename == string(filepath.Separator) || !hasAllowedExtension(filename) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "File type not allowed",
			"requestID": requestID,
		})
		return
	}

	if fh.Size > viper.GetInt64("upload.max_file_size")<<20 {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "File exceeds the size limit",
			"requestID": requestID,
		})
		return
	}

	perApp := 0
	for _, m := range a.Meta.All() {
		if m.Application == application {
			perApp++
		}
	}
	if perApp >= viper.GetInt("upload.max_files_per_app") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Too many files for this application",
			"requestID": requestID,
		})
		return
	}

	dest, err := a.Files.Resolve(filename)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     "Access denied",
			"requestID": requestID,
		})
		return
	}

	if err := c.SaveUploadedFile(fh, dest); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to store file",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store uploaded file", zap.Error(err))
		return
	}

	err = a.Meta.Add(model.FileMetadata{
		Filename:     filename,
		OriginalName: fh.Filename,
		Application:  application,
		OS:           osName,
		Architecture: arch,
		VersionType:  versionType,
		Size:         fh.Size,
		UploadedAt:   time.Now().UTC(),
	})
	if err != nil {
		zap.L().Error("Failed to record file metadata", zap.Error(err))
	}

	metrics.Uploads.Inc()

	zap.L().Info("File uploaded",
		zap.String("filename", filename),
		zap.String("application", application),
		zap.Int64("size", fh.Size),
	)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"downloadUrl": "/download/" + filename,
	})
}
