// Package metrics exposes the portal's Prometheus collectors
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Downloads counts download requests by terminal outcome:
	// completed, forbidden, not_found, failed.
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depot_downloads_total",
		Help: "Download requests by outcome",
	}, []string{"outcome"})

	// DownloadBytes counts bytes actually written to clients.
	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depot_download_bytes_total",
		Help: "Total bytes streamed to download clients",
	})

	// GeoLookups counts geolocation resolutions by provider and outcome:
	// cache_hit, ok, error.
	GeoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depot_geo_lookups_total",
		Help: "Geolocation lookups by provider and outcome",
	}, []string{"provider", "outcome"})

	// Uploads counts accepted package uploads.
	Uploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depot_uploads_total",
		Help: "Accepted package uploads",
	})
)
