package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelroom/internal/models"
)

// ErrNotFound reports that a requested item does not resolve to a playable
// file inside the library root. Traversal attempts deliberately map to the
// same error so callers cannot distinguish "outside the root" from "missing".
var ErrNotFound = errors.New("media: item not found")

var playableExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".webm": {},
	".mkv":  {},
	".mov":  {},
	".avi":  {},
}

const defaultScanConcurrency = 8

// manifestEntry is one record of the optional catalog manifest: a JSON object
// keyed by filename carrying display metadata the filesystem cannot provide.
type manifestEntry struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// LibraryConfig configures a Library.
type LibraryConfig struct {
	// Root is the directory holding the playable files. Required.
	Root string
	// ManifestPath optionally points at a JSON manifest mapping filenames to
	// display titles and thumbnail references. A missing manifest is not an
	// error; entries for unknown files are ignored.
	ManifestPath string
	// ScanConcurrency bounds concurrent stat calls during Scan. Defaults to 8.
	ScanConcurrency int
	Logger          *slog.Logger
}

// Library resolves catalog entries and file handles from a single media
// directory. All lookups are confined to the configured root.
type Library struct {
	root        string
	manifest    string
	concurrency int
	titleCaser  cases.Caser
	logger      *slog.Logger
}

// NewLibrary validates the configuration and constructs a Library. The root
// must exist and be a directory.
func NewLibrary(cfg LibraryConfig) (*Library, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("media: library root is required")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("media: resolve library root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("media: stat library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media: library root %s is not a directory", absRoot)
	}
	concurrency := cfg.ScanConcurrency
	if concurrency <= 0 {
		concurrency = defaultScanConcurrency
	}
	return &Library{
		root:        absRoot,
		manifest:    strings.TrimSpace(cfg.ManifestPath),
		concurrency: concurrency,
		titleCaser:  cases.Title(language.English),
		logger:      cfg.Logger,
	}, nil
}

// Root exposes the absolute library root directory.
func (l *Library) Root() string {
	return l.root
}

// Scan lists the playable files directly under the library root, joining the
// optional manifest for display metadata. File sizes and modification times
// come from the filesystem at call time; entries are sorted by ID for stable
// output.
func (l *Library) Scan(ctx context.Context) ([]models.MediaItem, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("media: read library root: %w", err)
	}
	manifest := l.loadManifest()

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := playableExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		names = append(names, entry.Name())
	}

	items := make([]models.MediaItem, len(names))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(l.concurrency)
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			info, err := os.Stat(filepath.Join(l.root, name))
			if err != nil {
				return fmt.Errorf("media: stat %s: %w", name, err)
			}
			items[i] = l.describe(name, info, manifest)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// Resolve returns the catalog entry for a single filename, or ErrNotFound.
func (l *Library) Resolve(filename string) (models.MediaItem, error) {
	path, err := l.securePath(filename)
	if err != nil {
		return models.MediaItem{}, err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return models.MediaItem{}, ErrNotFound
	}
	return l.describe(filepath.Base(path), info, l.loadManifest()), nil
}

// Open resolves a filename within the library root and opens it for
// streaming. Names that escape the root, point at directories, or do not
// exist all yield ErrNotFound. Callers own the returned file handle.
func (l *Library) Open(filename string) (*os.File, models.MediaItem, error) {
	path, err := l.securePath(filename)
	if err != nil {
		return nil, models.MediaItem{}, err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, models.MediaItem{}, ErrNotFound
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, models.MediaItem{}, ErrNotFound
	}
	return file, l.describe(filepath.Base(path), info, l.loadManifest()), nil
}

// securePath joins the filename onto the root and rejects any resolution that
// escapes it.
func (l *Library) securePath(filename string) (string, error) {
	trimmed := strings.TrimSpace(filename)
	if trimmed == "" {
		return "", ErrNotFound
	}
	full := filepath.Clean(filepath.Join(l.root, filepath.Clean("/"+trimmed)))
	if full != l.root && !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", ErrNotFound
	}
	if full == l.root {
		return "", ErrNotFound
	}
	return full, nil
}

func (l *Library) describe(name string, info os.FileInfo, manifest map[string]manifestEntry) models.MediaItem {
	item := models.MediaItem{
		ID:          name,
		Title:       l.deriveTitle(name),
		SizeBytes:   info.Size(),
		ContentType: contentTypeFor(name),
		ModifiedAt:  info.ModTime().UTC(),
	}
	if entry, ok := manifest[name]; ok {
		if title := strings.TrimSpace(entry.Title); title != "" {
			item.Title = title
		}
		item.ThumbnailURL = strings.TrimSpace(entry.Thumbnail)
	}
	return item
}

// deriveTitle turns a filename into a presentable title: extension stripped,
// separator runs collapsed to spaces, words title-cased.
func (l *Library) deriveTitle(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return name
	}
	return l.titleCaser.String(base)
}

func (l *Library) loadManifest() map[string]manifestEntry {
	if l.manifest == "" {
		return nil
	}
	data, err := os.ReadFile(l.manifest)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && l.logger != nil {
			l.logger.Warn("failed to read catalog manifest", "path", l.manifest, "error", err)
		}
		return nil
	}
	var manifest map[string]manifestEntry
	if err := json.Unmarshal(data, &manifest); err != nil {
		if l.logger != nil {
			l.logger.Warn("failed to decode catalog manifest", "path", l.manifest, "error", err)
		}
		return nil
	}
	return manifest
}

func contentTypeFor(name string) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mkv":
		return "video/x-matroska"
	case ".m4v":
		return "video/x-m4v"
	default:
		return "application/octet-stream"
	}
}
