package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"pparchive/internal/catalog"

	"bazil.org/fuse"
)

var testFiles = map[string]string{
	"atmos/ts/annual/5yr/atmos.2000-2004.tas.nc":                     "tas 2000",
	"atmos/ts/annual/5yr/atmos.2005-2009.tas.nc":                     "tas 2005",
	"atmos/ts/annual/5yr/atmos.2000-2004.pr.nc":                      "pr 2000",
	"atmos/ts/monthly/5yr/atmos.200001-200412.tas.nc":                "tas monthly",
	"ocean_month/ts/monthly/5yr/ocean_month.200001-200412.thetao.nc": "thetao",
	"land/av/annual_5yr/land.2000-2004.ann.nc":                       "land",
}

func setupTestFS(t *testing.T, opts ...Option) (*CatalogFS, string, func()) {
	rootDir, err := os.MkdirTemp("", "pparchive-root-*")
	if err != nil {
		t.Fatalf("Failed to create root dir: %v", err)
	}
	cleanup := func() {
		os.RemoveAll(rootDir)
	}

	for name, content := range testFiles {
		fullPath := filepath.Join(rootDir, name)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			cleanup()
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			cleanup()
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	cfs, err := NewCatalogFS(rootDir, catalog.NewExplorer(), opts...)
	if err != nil {
		cleanup()
		t.Fatalf("Failed to create catalog filesystem: %v", err)
	}
	return cfs, rootDir, cleanup
}

func direntNames(entries []fuse.Dirent) []string {
	var names []string
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		names = append(names, e.Name)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDirOperations(t *testing.T) {
	cfs, _, cleanup := setupTestFS(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("RootDirectory", func(t *testing.T) {
		root, err := cfs.Root()
		if err != nil {
			t.Fatalf("Failed to get root: %v", err)
		}

		attr := &fuse.Attr{}
		if err := root.Attr(ctx, attr); err != nil {
			t.Errorf("Failed to get root attributes: %v", err)
		}
		if attr.Mode&os.ModeDir == 0 {
			t.Error("Root should be a directory")
		}
		if attr.Mode&0222 != 0 {
			t.Errorf("Root should be read-only, got mode %v", attr.Mode)
		}

		entries, err := root.(*Dir).ReadDirAll(ctx)
		if err != nil {
			t.Fatalf("Failed to read root directory: %v", err)
		}
		// land has no time series
		expected := []string{"atmos", "ocean_month"}
		if got := direntNames(entries); !equalNames(got, expected) {
			t.Errorf("Expected components %v, got %v", expected, got)
		}
	})

	t.Run("ComponentDirectory", func(t *testing.T) {
		root, _ := cfs.Root()
		node, err := root.(*Dir).Lookup(ctx, "atmos")
		if err != nil {
			t.Fatalf("Failed to lookup component: %v", err)
		}

		entries, err := node.(*Dir).ReadDirAll(ctx)
		if err != nil {
			t.Fatalf("Failed to read component directory: %v", err)
		}
		expected := []string{"pr", "tas"}
		if got := direntNames(entries); !equalNames(got, expected) {
			t.Errorf("Expected variables %v, got %v", expected, got)
		}
	})

	t.Run("VariableDirectory", func(t *testing.T) {
		root, _ := cfs.Root()
		component, err := root.(*Dir).Lookup(ctx, "atmos")
		if err != nil {
			t.Fatalf("Failed to lookup component: %v", err)
		}
		variable, err := component.(*Dir).Lookup(ctx, "tas")
		if err != nil {
			t.Fatalf("Failed to lookup variable: %v", err)
		}

		entries, err := variable.(*Dir).ReadDirAll(ctx)
		if err != nil {
			t.Fatalf("Failed to read variable directory: %v", err)
		}
		// Only the annual/5yr layout is exposed
		expected := []string{"atmos.2000-2004.tas.nc", "atmos.2005-2009.tas.nc"}
		if got := direntNames(entries); !equalNames(got, expected) {
			t.Errorf("Expected files %v, got %v", expected, got)
		}
		for _, e := range entries[2:] {
			if e.Type != fuse.DT_File {
				t.Errorf("Entry %q should be a file", e.Name)
			}
		}

		node, err := variable.(*Dir).Lookup(ctx, "atmos.2000-2004.tas.nc")
		if err != nil {
			t.Fatalf("Failed to lookup file: %v", err)
		}
		file, ok := node.(*File)
		if !ok {
			t.Fatalf("Expected *File, got %T", node)
		}
		if file.sourcePath.String() != "atmos/ts/annual/5yr/atmos.2000-2004.tas.nc" {
			t.Errorf("Unexpected source path %q", file.sourcePath.String())
		}
	})

	t.Run("MissingEntries", func(t *testing.T) {
		root, _ := cfs.Root()
		dir := root.(*Dir)

		for _, name := range []string{"nope", "land"} {
			if _, err := dir.Lookup(ctx, name); !errors.Is(err, syscall.ENOENT) {
				t.Errorf("Lookup(%q): expected ENOENT, got %v", name, err)
			}
		}

		component, _ := dir.Lookup(ctx, "atmos")
		if _, err := component.(*Dir).Lookup(ctx, "zos"); !errors.Is(err, syscall.ENOENT) {
			t.Errorf("Expected ENOENT for missing variable, got %v", err)
		}

		deep := &Dir{fs: cfs, path: NewVirtualPath("/atmos/tas/file/extra")}
		if _, err := deep.ReadDirAll(ctx); !errors.Is(err, syscall.ENOENT) {
			t.Errorf("Expected ENOENT below file level, got %v", err)
		}
	})

	t.Run("ListingIsLive", func(t *testing.T) {
		extra := filepath.Join(cfs.root, "atmos/ts/annual/5yr/atmos.2010-2014.tas.nc")
		if err := os.WriteFile(extra, []byte("tas 2010"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}

		variable := &Dir{fs: cfs, path: NewVirtualPath("/atmos/tas")}
		entries, err := variable.ReadDirAll(ctx)
		if err != nil {
			t.Fatalf("Failed to read variable directory: %v", err)
		}
		if len(direntNames(entries)) != 3 {
			t.Errorf("Expected new file to appear, got %v", direntNames(entries))
		}
	})
}

func TestNewCatalogFSRejectsMissingRoot(t *testing.T) {
	if _, err := NewCatalogFS("/nonexistent/pp", catalog.NewExplorer()); err == nil {
		t.Error("Expected error for missing root")
	}
}
