// Package model defines the data shapes persisted by the portal
package model

import "time"

// DownloadRecord tracks how often a single stored file was downloaded.
// There is exactly one record per filename.
type DownloadRecord struct {
	Filename      string    `json:"filename"`
	DownloadCount int       `json:"downloadCount"`
	FirstDownload time.Time `json:"firstDownload"`
	LastDownload  time.Time `json:"lastDownload"`
}

// DownloadHistoryEntry is one download event. The raw user agent is stored
// as sent by the client; browser/os labels are derived at read time.
type DownloadHistoryEntry struct {
	Filename  string        `json:"filename"`
	Timestamp time.Time     `json:"timestamp"`
	IP        string        `json:"ip"`
	UserAgent string        `json:"userAgent"`
	Location  *LocationInfo `json:"location,omitempty"`
}
