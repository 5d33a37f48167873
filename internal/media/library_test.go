package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestLibrary(t *testing.T, files map[string][]byte) *Library {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), content, 0o644); err != nil {
			t.Fatalf("failed to write fixture %s: %v", name, err)
		}
	}
	library, err := NewLibrary(LibraryConfig{Root: root})
	if err != nil {
		t.Fatalf("failed to build library: %v", err)
	}
	return library
}

func TestNewLibraryRequiresDirectory(t *testing.T) {
	if _, err := NewLibrary(LibraryConfig{Root: ""}); err == nil {
		t.Fatalf("expected error for empty root")
	}
	if _, err := NewLibrary(LibraryConfig{Root: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for missing root")
	}

	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := NewLibrary(LibraryConfig{Root: file}); err == nil {
		t.Fatalf("expected error for non-directory root")
	}
}

func TestScanFiltersAndDescribes(t *testing.T) {
	library := newTestLibrary(t, map[string][]byte{
		"sintel-trailer.mp4": make([]byte, 1234),
		"big_buck_bunny.mkv": make([]byte, 99),
		"notes.txt":          []byte("not a video"),
		"poster.jpg":         []byte("nor this"),
	})

	items, err := library.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 playable items, got %d", len(items))
	}
	if items[0].ID != "big_buck_bunny.mkv" || items[1].ID != "sintel-trailer.mp4" {
		t.Fatalf("expected sorted IDs, got %q and %q", items[0].ID, items[1].ID)
	}
	if items[0].Title != "Big Buck Bunny" {
		t.Fatalf("expected derived title, got %q", items[0].Title)
	}
	if items[1].SizeBytes != 1234 {
		t.Fatalf("expected size from filesystem, got %d", items[1].SizeBytes)
	}
	if items[0].ContentType != "video/x-matroska" {
		t.Fatalf("unexpected content type %q", items[0].ContentType)
	}
}

func TestScanJoinsManifest(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "sintel.mp4"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	manifest := filepath.Join(root, "catalog.json")
	payload := `{"sintel.mp4":{"title":"Sintel (2010)","thumbnail":"/thumbs/sintel.jpg"},"ghost.mp4":{"title":"Ignored"}}`
	if err := os.WriteFile(manifest, []byte(payload), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	library, err := NewLibrary(LibraryConfig{Root: root, ManifestPath: manifest})
	if err != nil {
		t.Fatalf("failed to build library: %v", err)
	}
	items, err := library.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Sintel (2010)" {
		t.Fatalf("expected manifest title, got %q", items[0].Title)
	}
	if items[0].ThumbnailURL != "/thumbs/sintel.jpg" {
		t.Fatalf("expected manifest thumbnail, got %q", items[0].ThumbnailURL)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	library := newTestLibrary(t, map[string][]byte{"clip.mp4": make([]byte, 10)})

	secret := filepath.Join(filepath.Dir(library.Root()), "secret.txt")
	if err := os.WriteFile(secret, []byte("do not serve"), 0o644); err != nil {
		t.Fatalf("failed to plant sibling file: %v", err)
	}

	attempts := []string{
		"../secret.txt",
		"..%2Fsecret.txt",
		"../../etc/passwd",
		"subdir/../../secret.txt",
		"",
		".",
		"..",
	}
	for _, name := range attempts {
		if _, _, err := library.Open(name); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for %q, got %v", name, err)
		}
	}
}

func TestOpenReturnsHandleAndMetadata(t *testing.T) {
	content := []byte("0123456789")
	library := newTestLibrary(t, map[string][]byte{"clip.mp4": content})

	file, item, err := library.Open("clip.mp4")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer file.Close()

	if item.ID != "clip.mp4" || item.SizeBytes != int64(len(content)) {
		t.Fatalf("unexpected item %+v", item)
	}
	buf := make([]byte, len(content))
	if _, err := file.Read(buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != string(content) {
		t.Fatalf("unexpected content %q", buf)
	}
}

func TestOpenMissingFile(t *testing.T) {
	library := newTestLibrary(t, nil)
	if _, _, err := library.Open("ghost.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveReturnsEntry(t *testing.T) {
	library := newTestLibrary(t, map[string][]byte{"clip.mp4": make([]byte, 42)})
	item, err := library.Resolve("clip.mp4")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if item.SizeBytes != 42 || item.ContentType != "video/mp4" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestDeriveTitleNormalizesSeparators(t *testing.T) {
	library := newTestLibrary(t, nil)
	cases := map[string]string{
		"the.matrix.1999.mp4": "The Matrix 1999",
		"big_buck_bunny.webm": "Big Buck Bunny",
		"sintel-trailer.mp4":  "Sintel Trailer",
		"already titled.mov":  "Already Titled",
		"___.mp4":             "___.mp4",
	}
	for input, want := range cases {
		if got := library.deriveTitle(input); got != want {
			t.Fatalf("deriveTitle(%q) = %q, want %q", input, got, want)
		}
	}
}
