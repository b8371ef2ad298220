package api

import (
	"net/http"

	"insoft/depot-api/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type websiteSettings struct {
	Domain      string `json:"domain"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type uploadSettings struct {
	MaxFileSize       int      `json:"max_file_size"`
	AllowedExtensions []string `json:"allowed_extensions"`
	MaxFilesPerApp    int      `json:"max_files_per_app"`
}

type downloadSettings struct {
	SpeedLimitMBps float64 `json:"speed_limit_mbps"`
}

type geolocationSettings struct {
	Enabled       bool   `json:"enabled"`
	Provider      string `json:"provider"`
	APIKey        string `json:"api_key,omitempty"`
	CacheDuration int    `json:"cache_duration"`
}

type settingsBody struct {
	Website     *websiteSettings     `json:"website"`
	Upload      *uploadSettings      `json:"upload"`
	Download    *downloadSettings    `json:"download"`
	Geolocation *geolocationSettings `json:"geolocation"`
}

// tunableKeys is every config key the settings endpoint may touch. A
// snapshot over all of them lets a rejected update roll back completely.
var tunableKeys = []string{
	"website.domain", "website.title", "website.description",
	"upload.max_file_size", "upload.allowed_extensions", "upload.max_files_per_app",
	"download.speed_limit_mbps",
	"geolocation.enabled", "geolocation.provider", "geolocation.api_key", "geolocation.cache_duration",
}

// SettingsFetch returns the runtime-tunable settings sections.
func (a *API) SettingsFetch(c *gin.Context) {
	c.JSON(http.StatusOK, settingsBody{
		Website: &websiteSettings{
			Domain:      viper.GetString("website.domain"),
			Title:       viper.GetString("website.title"),
			Description: viper.GetString("website.description"),
		},
		Upload: &uploadSettings{
			MaxFileSize:       viper.GetInt("upload.max_file_size"),
			AllowedExtensions: viper.GetStringSlice("upload.allowed_extensions"),
			MaxFilesPerApp:    viper.GetInt("upload.max_files_per_app"),
		},
		Download: &downloadSettings{
			SpeedLimitMBps: viper.GetFloat64("download.speed_limit_mbps"),
		},
		Geolocation: &geolocationSettings{
			Enabled:       viper.GetBool("geolocation.enabled"),
			Provider:      viper.GetString("geolocation.provider"),
			CacheDuration: viper.GetInt("geolocation.cache_duration"),
		},
	})
}

// SettingsUpdate validates new settings and writes them back to the
// config file. The config watcher picks the change up, so the new values
// apply to the next request without a restart.
func (a *API) SettingsUpdate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data settingsBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if data.Website == nil || data.Upload == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Incomplete settings payload",
			"requestID": requestID,
		})
		return
	}

	if data.Website.Domain == "" || data.Website.Title == "" || data.Website.Description == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Website settings are incomplete",
			"requestID": requestID,
		})
		return
	}

	// Validation runs against the live viper state, so the candidate values
	// go in on top of a snapshot and come back out if they don't hold up.
	snapshot := make(map[string]any, len(tunableKeys))
	for _, key := range tunableKeys {
		snapshot[key] = viper.Get(key)
	}

	viper.Set("website.domain", data.Website.Domain)
	viper.Set("website.title", data.Website.Title)
	viper.Set("website.description", data.Website.Description)

	viper.Set("upload.max_file_size", data.Upload.MaxFileSize)
	viper.Set("upload.allowed_extensions", data.Upload.AllowedExtensions)
	viper.Set("upload.max_files_per_app", data.Upload.MaxFilesPerApp)

	if data.Download != nil {
		viper.Set("download.speed_limit_mbps", data.Download.SpeedLimitMBps)
	}

	if data.Geolocation != nil {
		viper.Set("geolocation.enabled", data.Geolocation.Enabled)
		viper.Set("geolocation.provider", data.Geolocation.Provider)
		if data.Geolocation.APIKey != "" {
			viper.Set("geolocation.api_key", data.Geolocation.APIKey)
		}
		viper.Set("geolocation.cache_duration", data.Geolocation.CacheDuration)
	}

	if err := config.Validate(); err != nil {
		for key, val := range snapshot {
			viper.Set(key, val)
		}

		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := viper.WriteConfig(); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Failed to save settings",
			"requestID": requestID,
		})

		zap.L().Error("Failed to write config file", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClientConfig returns the public branding bits the UI needs before
// login. Nothing sensitive leaves here.
func (a *API) ClientConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"website": gin.H{
			"domain":      viper.GetString("website.domain"),
			"title":       viper.GetString("website.title"),
			"description": viper.GetString("website.description"),
		},
	})
}
