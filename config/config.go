// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath        = pflag.String("config", ".", "Directory containing config.yaml")
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validGeoProviders = []string{"ipapi", "ipstack", "ipgeolocation", "ip2location"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that. The config file keeps being watched afterwards, so settings
// edited through the API (or by hand) apply without a restart.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("server.port", "server_port")

	v.BindEnv("website.domain", "website_domain")
	v.BindEnv("website.title", "website_title")
	v.BindEnv("website.description", "website_description")

	v.BindEnv("admin.username", "admin_username")
	v.BindEnv("admin.password", "admin_password")
	v.BindEnv("admin.session_duration", "admin_session_duration")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("storage.root", "storage_root")
	v.BindEnv("storage.data_dir", "storage_data_dir")

	v.BindEnv("upload.max_file_size", "upload_max_file_size")
	v.BindEnv("upload.allowed_extensions", "upload_allowed_extensions")
	v.BindEnv("upload.max_files_per_app", "upload_max_files_per_app")

	v.BindEnv("download.speed_limit_mbps", "download_speed_limit_mbps")

	v.BindEnv("geolocation.enabled", "geolocation_enabled")
	v.BindEnv("geolocation.provider", "geolocation_provider")
	v.BindEnv("geolocation.api_key", "geolocation_api_key")
	v.BindEnv("geolocation.cache_duration", "geolocation_cache_duration")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", 8080)

	v.SetDefault("website.domain", "localhost")
	v.SetDefault("website.title", "Software Depot")
	v.SetDefault("website.description", "Internal software distribution portal")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.session_duration", 7)

	v.SetDefault("storage.root", "uploads")
	v.SetDefault("storage.data_dir", "data")

	v.SetDefault("upload.max_file_size", 500)
	v.SetDefault("upload.allowed_extensions", []string{".exe", ".msi", ".dmg", ".pkg", ".deb", ".rpm", ".zip", ".tar.gz", ".apk"})
	v.SetDefault("upload.max_files_per_app", 100)

	// 0 means unlimited. The value is megabytes per second, the limiter
	// converts to bytes with a 1024*1024 factor.
	v.SetDefault("download.speed_limit_mbps", 0)

	v.SetDefault("geolocation.enabled", false)
	v.SetDefault("geolocation.provider", "ipapi")
	v.SetDefault("geolocation.cache_duration", 86400)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.yaml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if err := Validate(); err != nil {
		return err
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.yaml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.yaml file.")
		os.Exit(0)
	}

	if v.GetString("admin.password") == "" {
		return errors.New("admin.password can't be empty")
	}

	v.OnConfigChange(onConfigChange)
	v.WatchConfig()

	return nil
}

// onConfigChange runs after viper has already merged the changed file, so
// invalid values are live by the time validation sees them. The log says
// so instead of pretending the change was ignored.
func onConfigChange(e fsnotify.Event) {
	if err := Validate(); err != nil {
		zap.L().Error("Config file changed to invalid values, fix the file to restore a working configuration", zap.Error(err))
		return
	}

	zap.L().Info("Config reloaded", zap.String("file", e.Name))
}

// Validate checks the runtime-tunable part of the configuration. The
// settings endpoint runs the same checks before persisting an update.
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("server.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if size := v.GetInt("upload.max_file_size"); size < 1 || size > 10240 {
		return errors.New("upload.max_file_size must be between 1 and 10240 MB")
	}

	exts := v.GetStringSlice("upload.allowed_extensions")
	if len(exts) == 0 {
		return errors.New("upload.allowed_extensions must list at least one extension")
	}

	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("invalid file extension: %s", ext)
		}
	}

	if n := v.GetInt("upload.max_files_per_app"); n < 1 || n > 10000 {
		return errors.New("upload.max_files_per_app must be between 1 and 10000")
	}

	if v.GetFloat64("download.speed_limit_mbps") < 0 {
		return errors.New("download.speed_limit_mbps can't be negative")
	}

	if v.GetBool("geolocation.enabled") {
		if !slices.Contains(validGeoProviders, v.GetString("geolocation.provider")) {
			return errors.New("invalid geolocation provider provided")
		}

		if v.GetInt("geolocation.cache_duration") <= 0 {
			return errors.New("geolocation.cache_duration must be bigger than 0")
		}
	}

	return nil
}
