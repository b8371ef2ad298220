package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsUpdateRejectionLeavesConfigUntouched(t *testing.T) {
	a := setupAPI(t)
	token := loginToken(t, a)

	viper.Set("website.domain", "depot.internal")
	viper.Set("website.title", "Software Depot")
	viper.Set("website.description", "Internal portal")

	body, _ := json.Marshal(gin.H{
		"website": gin.H{"domain": "new.internal", "title": "New", "description": "changed"},
		"upload":  gin.H{"max_file_size": 0, "allowed_extensions": []string{".exe"}, "max_files_per_app": 10},
	})

	rec := doRequest(a, http.MethodPut, "/api/settings", body, map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// The rejected values must not stay live
	assert.Equal(t, 10, viper.GetInt("upload.max_file_size"))
	assert.Equal(t, "depot.internal", viper.GetString("website.domain"))
	assert.Equal(t, "Software Depot", viper.GetString("website.title"))
	assert.Equal(t, []string{".exe", ".zip"}, viper.GetStringSlice("upload.allowed_extensions"))
}

func TestSettingsFetch(t *testing.T) {
	a := setupAPI(t)
	token := loginToken(t, a)

	viper.Set("website.domain", "depot.internal")
	viper.Set("website.title", "Software Depot")
	viper.Set("website.description", "Internal portal")

	rec := doRequest(a, http.MethodGet, "/api/settings", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp settingsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Website)
	require.NotNil(t, resp.Upload)
	assert.Equal(t, "depot.internal", resp.Website.Domain)
	assert.Equal(t, 10, resp.Upload.MaxFileSize)
}
