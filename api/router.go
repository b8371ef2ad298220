// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"insoft/depot-api/geo"
	"insoft/depot-api/middleware"
	"insoft/depot-api/storage"
	"insoft/depot-api/store"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var cacheStore = persist.NewMemoryStore(time.Minute)

type API struct {
	Router  *gin.Engine
	Files   *storage.Root
	Ledger  *store.Ledger
	Meta    *store.Metadata
	Apps    *store.Apps
	Geo     *geo.Resolver
	started time.Time
}

func NewRouter() (*API, error) {
	makeLogger()

	dataDir := viper.GetString("storage.data_dir")

	files, err := storage.NewRoot(viper.GetString("storage.root"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage root, %w", err)
	}

	resolver := geo.NewResolver(dataDir)

	a := &API{
		Files:   files,
		Ledger:  store.NewLedger(dataDir, resolver),
		Meta:    store.NewMetadata(dataDir),
		Apps:    store.NewApps(dataDir),
		Geo:     resolver,
		started: time.Now(),
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("username"); v != "" {
					fields = append(fields, zap.String("username", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	a.Router.MaxMultipartMemory = 5 << 20

	auth := middleware.NewAuthMiddleware()
	loginLimit := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 2,
		Burst:             5,
	})

	// GET /metrics			-> Prometheus collectors
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	download := router.Group("/download")
	{
		// GET /download/{filename}					-> Streams a stored file (canonical)
		// GET /download/{app}/{os}/{arch}/{versionType}/{filename}	-> Legacy hierarchical addressing
		download.GET("/*filepath", a.Download)
	}

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /api/config		-> Public website branding for the UI
		main.GET("/config", a.ClientConfig)
	}

	authGroup := main.Group("/auth", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/auth/login 	-> Logs in the admin and returns a JWT token
		authGroup.POST("/login", loginLimit, a.AuthLogin)

		// POST /api/auth/verify 	-> Validates a JWT token
		authGroup.POST("/verify", a.AuthVerify)
	}

	stats := main.Group("/stats", auth)
	{
		// GET /api/stats/downloads		-> All download counters
		stats.GET("/downloads", a.StatsDownloads)

		// GET /api/stats/downloads/ranking	-> Top-N files by download count
		stats.GET("/downloads/ranking", a.StatsRanking)

		// GET /api/stats/downloads/history	-> Filtered, paginated download history
		stats.GET("/downloads/history", a.StatsHistory)

		// GET /api/stats/overview		-> Aggregate counters for the dashboard
		stats.GET("/overview", cacheFor(30), a.StatsOverview)
	}

	apps := main.Group("/apps", auth, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/apps		-> Lists registered applications
		apps.GET("", a.AppsList)

		// POST /api/apps 		-> Registers a new application
		apps.POST("", a.AppsCreate)

		// PUT /api/apps/:id 		-> Updates an application
		apps.PUT("/:id", a.AppsUpdate)

		// DELETE /api/apps/:id 	-> Removes an application
		apps.DELETE("/:id", a.AppsDelete)
	}

	list := main.Group("/list", auth)
	{
		// GET /api/list		-> Lists stored files, newest first
		list.GET("", a.FileList)

		// POST /api/list/delete	-> Deletes a stored file and its records
		list.POST("/delete", middleware.BodySizeLimiter(1<<20), a.FileDelete)
	}

	settings := main.Group("/settings", auth, middleware.BodySizeLimiter(1<<20))
	{
		// GET /api/settings		-> Current runtime settings
		settings.GET("", a.SettingsFetch)

		// PUT /api/settings		-> Validates and persists new settings
		settings.PUT("", a.SettingsUpdate)
	}

	// GET /api/version			-> Build and runtime information
	main.GET("/version", auth, a.VersionInfo)

	// POST /upload				-> Uploads a new package
	// The body cap tracks the live config, not the value at startup
	router.POST("/upload", auth, middleware.BodySizeLimiterFunc(func() int64 {
		return viper.GetInt64("upload.max_file_size") << 20
	}), a.FileUpload)

	// Root-level downloads: GET /{filename} works for any name carrying
	// an allowed upload extension. Everything else is a plain 404.
	router.NoRoute(a.RootDownload)

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(cacheStore, time.Second*time.Duration(sec))
}
