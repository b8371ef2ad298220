package store

import (
	"testing"
	"time"

	"insoft/depot-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMeta(filename, app, osName, arch string) model.FileMetadata {
	return model.FileMetadata{
		Filename:     filename,
		OriginalName: filename,
		Application:  app,
		OS:           osName,
		Architecture: arch,
		VersionType:  "release",
		Size:         1024,
		UploadedAt:   time.Now().UTC(),
	}
}

func TestMetadataAddAndFind(t *testing.T) {
	m := NewMetadata(t.TempDir())

	require.NoError(t, m.Add(sampleMeta("a.exe", "myapp", "windows", "amd64")))
	require.NoError(t, m.Add(sampleMeta("b.dmg", "myapp", "macos", "arm64")))

	found := m.Find("a.exe")
	require.NotNil(t, found)
	assert.Equal(t, "myapp", found.Application)
	assert.Equal(t, "myapp-windows-amd64", found.FileTypeID())

	assert.Nil(t, m.Find("missing.exe"))
	assert.Len(t, m.All(), 2)
}

func TestMetadataReuploadReplaces(t *testing.T) {
	m := NewMetadata(t.TempDir())

	require.NoError(t, m.Add(sampleMeta("a.exe", "myapp", "windows", "amd64")))

	updated := sampleMeta("a.exe", "myapp", "windows", "arm64")
	require.NoError(t, m.Add(updated))

	require.Len(t, m.All(), 1)
	assert.Equal(t, "arm64", m.Find("a.exe").Architecture)
}

func TestMetadataRemove(t *testing.T) {
	m := NewMetadata(t.TempDir())

	require.NoError(t, m.Add(sampleMeta("a.exe", "myapp", "windows", "amd64")))
	require.NoError(t, m.Remove("a.exe"))
	require.NoError(t, m.Remove("a.exe"))

	assert.Empty(t, m.All())
}

func TestMetadataFileTypes(t *testing.T) {
	m := NewMetadata(t.TempDir())

	assert.Equal(t, []string{}, m.FileTypes())

	require.NoError(t, m.Add(sampleMeta("a.exe", "myapp", "windows", "amd64")))
	require.NoError(t, m.Add(sampleMeta("b.exe", "myapp", "windows", "amd64")))
	require.NoError(t, m.Add(sampleMeta("c.dmg", "myapp", "macos", "arm64")))

	assert.Equal(t, []string{"myapp-macos-arm64", "myapp-windows-amd64"}, m.FileTypes())
}
