package store

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"insoft/depot-api/model"
	"insoft/depot-api/util"
)

var (
	ErrAppExists   = errors.New("an app with that name already exists")
	ErrAppNotFound = errors.New("app not found")
)

// Apps is the registry of applications packages can be uploaded for.
type Apps struct {
	path string
	mu   sync.Mutex
}

func NewApps(dataDir string) *Apps {
	return &Apps{path: filepath.Join(dataDir, "apps.json")}
}

func (a *Apps) All() ([]model.App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.load()
}

func (a *Apps) load() ([]model.App, error) {
	var apps []model.App
	if err := readJSON(a.path, &apps); err != nil {
		return nil, err
	}

	if apps == nil {
		apps = []model.App{}
	}

	return apps, nil
}

func (a *Apps) Create(name, displayName, description string) (*model.App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	apps, err := a.load()
	if err != nil {
		return nil, err
	}

	for _, app := range apps {
		if app.Name == name {
			return nil, ErrAppExists
		}
	}

	app := model.App{
		ID:          util.RandStr(12),
		Name:        name,
		DisplayName: displayName,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := writeJSON(a.path, append(apps, app)); err != nil {
		return nil, err
	}

	return &app, nil
}

func (a *Apps) Update(id, displayName, description string) (*model.App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	apps, err := a.load()
	if err != nil {
		return nil, err
	}

	for i := range apps {
		if apps[i].ID != id {
			continue
		}

		apps[i].DisplayName = displayName
		apps[i].Description = description

		if err := writeJSON(a.path, apps); err != nil {
			return nil, err
		}

		return &apps[i], nil
	}

	return nil, ErrAppNotFound
}

func (a *Apps) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	apps, err := a.load()
	if err != nil {
		return err
	}

	kept := apps[:0]
	for _, app := range apps {
		if app.ID != id {
			kept = append(kept, app)
		}
	}

	if len(kept) == len(apps) {
		return ErrAppNotFound
	}

	return writeJSON(a.path, kept)
}
