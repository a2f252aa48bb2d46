// internal/images/images.go

// Package images discovers card-art collections on disk. Each
// subdirectory of the root is a candidate collection; it qualifies if
// it holds at least a full deck's worth of image files.
package images

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// MinCollectionSize is the smallest usable collection: one full board.
const MinCollectionSize = 20

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Library holds the discovered collections, mapping collection name to
// its image file names. Collections are scanned once at startup; the
// library is read-only afterwards and safe for concurrent use.
type Library struct {
	collections map[string][]string
}

// FindCollections scans root for image collections. Subdirectories with
// fewer than MinCollectionSize images are skipped with a warning, as
// are non-image files and symlinks.
func FindCollections(root string, logger *logrus.Logger) (*Library, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	lib := &Library{collections: make(map[string][]string)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()

		files, err := os.ReadDir(filepath.Join(root, name))
		if err != nil {
			logger.Warnf("Skipping unreadable collection %q: %v", name, err)
			continue
		}

		var imgs []string
		for _, f := range files {
			if !f.Type().IsRegular() {
				continue
			}
			if imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
				imgs = append(imgs, f.Name())
			}
		}

		if len(imgs) < MinCollectionSize {
			logger.Warnf("Not enough images in collection %q (%d, need %d)", name, len(imgs), MinCollectionSize)
			continue
		}
		sort.Strings(imgs)
		lib.collections[name] = imgs
		logger.Infof("Found collection %q with %d images", name, len(imgs))
	}
	return lib, nil
}

// Get returns the image list for a collection.
func (l *Library) Get(name string) ([]string, bool) {
	imgs, ok := l.collections[name]
	return imgs, ok
}

// Names returns the available collection names, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.collections))
	for name := range l.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewLibrary builds a library from an in-memory mapping. Used by tests
// and the debug harness.
func NewLibrary(collections map[string][]string) *Library {
	m := make(map[string][]string, len(collections))
	for name, imgs := range collections {
		m[name] = append([]string(nil), imgs...)
	}
	return &Library{collections: m}
}
