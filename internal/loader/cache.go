package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/workspace"
)

const (
	// CacheDir is the cache root relative to the build path.
	CacheDir = "cache/plugins"
	// ScratchDir is the scratch directory name below the cache root.
	ScratchDir = "tmp"
)

// Entry is one cache bucket: <root>/<hash>/<id>/<version>.
type Entry struct {
	Hash    string
	ID      string
	Version string
	Path    string
	// Valid reports whether the bucket holds a readable descriptor with a non-empty id.
	Valid bool
}

// Cache is the on-disk plugin cache below a build path.
type Cache struct {
	root    string
	scratch *workspace.Manager
}

// NewCache returns the cache rooted at <buildPath>/cache/plugins.
func NewCache(buildPath string) *Cache {
	root := filepath.Join(buildPath, filepath.FromSlash(CacheDir))
	return &Cache{root: root, scratch: workspace.NewManager(filepath.Join(root, ScratchDir))}
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// Scratch returns the scratch directory manager.
func (c *Cache) Scratch() *workspace.Manager { return c.scratch }

// BucketPath returns the directory for (hash, id, version).
func (c *Cache) BucketPath(hash, id, version string) string {
	return filepath.Join(c.root, hash, id, version)
}

// Lookup finds a valid bucket for hash/*/version. Buckets whose descriptor is
// missing or declares no id are ignored, so the caller refetches.
func (c *Cache) Lookup(hash, version string) (Entry, bool) {
	if hash == "" || version == "" {
		return Entry{}, false
	}
	ids, err := os.ReadDir(filepath.Join(c.root, hash))
	if err != nil {
		return Entry{}, false
	}
	for _, idDir := range ids {
		if !idDir.IsDir() {
			continue
		}
		dir := filepath.Join(c.root, hash, idDir.Name(), version)
		if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
			continue
		}
		id, descErr := ReadDescriptor(dir)
		if descErr != nil {
			continue
		}
		return Entry{Hash: hash, ID: id, Version: version, Path: dir, Valid: true}, true
	}
	return Entry{}, false
}

// Store moves the package tree at src into the (hash, id, version) bucket,
// replacing any previous content, and returns the bucket path.
func (c *Cache) Store(src, hash, id, version string) (string, error) {
	dst := c.BucketPath(hash, id, version)
	if err := workspace.MoveDir(src, dst); err != nil {
		return "", errors.FileSystemError("failed to store plugin in cache").
			WithCause(err).
			WithContext("path", dst).
			Build()
	}
	return dst, nil
}

// List walks every bucket in the cache, valid or not, sorted by path.
func (c *Cache) List() ([]Entry, error) {
	hashes, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileSystemError("failed to read plugin cache").
			WithCause(err).
			WithContext("path", c.root).
			Build()
	}

	var entries []Entry
	for _, h := range hashes {
		if !h.IsDir() || h.Name() == ScratchDir {
			continue
		}
		ids, _ := os.ReadDir(filepath.Join(c.root, h.Name()))
		for _, idDir := range ids {
			if !idDir.IsDir() {
				continue
			}
			versions, _ := os.ReadDir(filepath.Join(c.root, h.Name(), idDir.Name()))
			for _, v := range versions {
				if !v.IsDir() {
					continue
				}
				dir := filepath.Join(c.root, h.Name(), idDir.Name(), v.Name())
				declared, descErr := ReadDescriptor(dir)
				entries = append(entries, Entry{
					Hash:    h.Name(),
					ID:      idDir.Name(),
					Version: v.Name(),
					Path:    dir,
					Valid:   descErr == nil && declared != "",
				})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Remove deletes every bucket under hash.
func (c *Cache) Remove(hash string) error {
	if hash == "" || hash == ScratchDir {
		return fmt.Errorf("invalid cache hash %q", hash)
	}
	if err := os.RemoveAll(filepath.Join(c.root, hash)); err != nil {
		return errors.FileSystemError("failed to remove cache buckets").
			WithCause(err).
			WithContext("hash", hash).
			Build()
	}
	return nil
}

// Clear deletes the whole cache, scratch included.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.root); err != nil {
		return errors.FileSystemError("failed to clear plugin cache").
			WithCause(err).
			WithContext("path", c.root).
			Build()
	}
	return nil
}
