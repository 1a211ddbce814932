package lensprofile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Catalog is a directory of profile JSON documents, one file per profile id.
// The filesystem is an index, not the source of truth; the JSON content is
// authoritative. A catalog may optionally watch its directory and reload
// entries when the files change on disk.
type Catalog struct {
	dir    string
	logger golog.Logger

	mu       sync.RWMutex
	profiles map[string]*LensProfile

	watcher                 *fsnotify.Watcher
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewCatalog loads every profile document under dir.
func NewCatalog(dir string, logger golog.Logger) (*Catalog, error) {
	c := &Catalog{dir: dir, logger: logger, profiles: map[string]*LensProfile{}}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return errors.Wrapf(err, "error reading profile directory %q", c.dir)
	}
	profiles := map[string]*LensProfile{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())
		profile, err := NewLensProfileFromJSONFile(path)
		if err != nil {
			// one bad document should not take down the whole catalog
			c.logger.Errorw("skipping invalid profile document", "path", path, "error", err)
			continue
		}
		profiles[profile.ID] = profile
	}
	c.mu.Lock()
	c.profiles = profiles
	c.mu.Unlock()
	return nil
}

// Get returns the profile with the given id.
func (c *Catalog) Get(id string) (*LensProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	profile, ok := c.profiles[id]
	if !ok {
		return nil, errors.Errorf("no lens profile with id %q", id)
	}
	return profile, nil
}

// All returns every profile, ordered by id.
func (c *Catalog) All() []*LensProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := make([]*LensProfile, 0, len(c.profiles))
	for _, profile := range c.profiles {
		all = append(all, profile)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Put validates the profile and writes it to the catalog directory.
func (c *Catalog) Put(profile *LensProfile) error {
	if err := profile.CheckValid(); err != nil {
		return err
	}
	if profile.ID == "" {
		return errors.New("profile must have an id")
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec
	if err := os.WriteFile(filepath.Join(c.dir, profile.ID+".json"), data, 0o644); err != nil {
		return errors.Wrapf(err, "error writing profile %q", profile.ID)
	}
	c.mu.Lock()
	c.profiles[profile.ID] = profile
	c.mu.Unlock()
	return nil
}

// Delete removes the profile document and catalog entry for the given id.
func (c *Catalog) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.profiles[id]; !ok {
		return errors.Errorf("no lens profile with id %q", id)
	}
	if err := os.Remove(filepath.Join(c.dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "error removing profile %q", id)
	}
	delete(c.profiles, id)
	return nil
}

// Watch reloads the catalog whenever its directory changes on disk, until the
// context is done or Close is called. The desktop app edits profile documents
// in place, so entries picked up here replace the in-memory set wholesale.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.watcher != nil {
		return errors.New("catalog is already watching")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(c.dir); err != nil {
		return errors.Wrapf(err, "error watching profile directory %q", c.dir)
	}
	c.watcher = watcher
	cancelCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		for {
			select {
			case <-cancelCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := c.reload(); err != nil {
					c.logger.Errorw("error reloading profile catalog", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Errorw("profile catalog watch error", "error", err)
			}
		}
	}, c.activeBackgroundWorkers.Done)
	return nil
}

// Close stops watching, if a watch is active.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	c.cancel()
	err := c.watcher.Close()
	c.activeBackgroundWorkers.Wait()
	c.watcher = nil
	return err
}
