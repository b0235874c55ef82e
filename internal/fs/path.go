package fs

import (
	"path/filepath"
	"strings"

	"pparchive/internal/logging"
)

var (
	pathLogger = logging.GetLogger().WithPrefix("path")
)

// SourcePath is a path in the archive, relative to the postprocessing root.
type SourcePath struct {
	// relative path from the pp root
	path string
}

// NewSourcePath creates a new SourcePath instance.
// It cleans the path and ensures it's relative to the root.
func NewSourcePath(path string) *SourcePath {
	cleaned := filepath.Clean(path)
	cleaned = strings.TrimPrefix(cleaned, "/")
	pathLogger.Trace("Creating new source path: %q -> %q", path, cleaned)
	return &SourcePath{path: cleaned}
}

// String returns the string representation of the path
func (sp *SourcePath) String() string {
	return sp.path
}

// FullPath returns the absolute path by joining with the root
func (sp *SourcePath) FullPath(root string) string {
	full := filepath.Join(root, sp.path)
	pathLogger.Trace("Getting full path: %q + %q -> %q", root, sp.path, full)
	return full
}

// Base returns the last element of the path
func (sp *SourcePath) Base() string {
	return filepath.Base(sp.path)
}

// VirtualPath is a path inside the mounted catalog, always absolute.
// Its segments are /<component>/<variable>/<file>.
type VirtualPath struct {
	path string
}

// NewVirtualPath creates a new VirtualPath instance.
// It cleans the path and ensures it's absolute.
func NewVirtualPath(path string) *VirtualPath {
	cleaned := filepath.Clean("/" + path)
	pathLogger.Trace("Creating new virtual path: %q -> %q", path, cleaned)
	return &VirtualPath{path: cleaned}
}

// String returns the string representation of the path
func (vp *VirtualPath) String() string {
	return vp.path
}

// Join returns the child path name below vp.
func (vp *VirtualPath) Join(name string) *VirtualPath {
	return NewVirtualPath(vp.path + "/" + name)
}

// Base returns the last element of the path
func (vp *VirtualPath) Base() string {
	return filepath.Base(vp.path)
}

// IsRoot returns true if this is the root virtual path "/"
func (vp *VirtualPath) IsRoot() bool {
	return vp.path == "/"
}

// Segments returns the path elements below the root.
func (vp *VirtualPath) Segments() []string {
	if vp.IsRoot() {
		return nil
	}
	return strings.Split(strings.TrimPrefix(vp.path, "/"), "/")
}
