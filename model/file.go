package model

import "time"

// FileMetadata describes one uploaded package. The filename is the on-disk
// basename under the storage root, OriginalName what the uploader called it.
type FileMetadata struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Application  string    `json:"application"`
	OS           string    `json:"os"`
	Architecture string    `json:"architecture"`
	VersionType  string    `json:"versionType"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// FileTypeID builds the category tag used by the history filter,
// e.g. "myapp-windows-amd64".
func (m FileMetadata) FileTypeID() string {
	return m.Application + "-" + m.OS + "-" + m.Architecture
}

// App is an application registered in the portal.
type App struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
