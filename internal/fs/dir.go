package fs

import (
	"context"
	"os"

	"pparchive/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a directory of the catalog: the root (components), a component
// (variables) or a variable (files). Its children are listed from the
// archive on every call.
type Dir struct {
	fs   *CatalogFS
	path *VirtualPath
}

// entry is one child of a Dir.
type entry struct {
	name   string
	source *SourcePath // nil for directories
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path.String())
	a.Mode = os.ModeDir | 0555
	a.Uid = d.fs.uid
	a.Gid = d.fs.gid
	return nil
}

func (d *Dir) children() ([]entry, error) {
	var names []string
	var err error

	segments := d.path.Segments()
	switch len(segments) {
	case 0:
		names, err = d.fs.components()
	case 1:
		names, err = d.fs.variables(segments[0])
	case 2:
		files, err := d.fs.files(segments[0], segments[1])
		if err != nil {
			return nil, err
		}
		entries := make([]entry, 0, len(files))
		for _, f := range files {
			entries = append(entries, entry{name: f.Base(), source: f})
		}
		return entries, nil
	default:
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, entry{name: name})
	}
	return entries, nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	dirLogger.Debug("Looking up %q in directory %q", name, d.path.String())
	childPath := d.path.Join(name)

	entries, err := d.children()
	if err != nil {
		return nil, ToFuseError(NewFSError(OpLookup, childPath.String(), err))
	}
	for _, e := range entries {
		if e.name != name {
			continue
		}
		if e.source != nil {
			dirLogger.Debug("Found archive file: %q -> %q", childPath.String(), e.source.String())
			return &File{fs: d.fs, path: childPath, sourcePath: e.source}, nil
		}
		dirLogger.Debug("Found catalog directory: %q", childPath.String())
		return &Dir{fs: d.fs, path: childPath}, nil
	}

	dirLogger.Debug("Path not found: %q", childPath.String())
	return nil, ToFuseError(NewFSError(OpLookup, childPath.String(), ErrPathNotFound))
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path.String())

	children, err := d.children()
	if err != nil {
		return nil, ToFuseError(NewFSError(OpReadDir, d.path.String(), err))
	}

	entries := []fuse.Dirent{
		{Name: ".", Type: fuse.DT_Dir},
		{Name: "..", Type: fuse.DT_Dir},
	}
	for _, e := range children {
		typ := fuse.DT_Dir
		if e.source != nil {
			typ = fuse.DT_File
		}
		entries = append(entries, fuse.Dirent{Name: e.name, Type: typ})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path.String(), len(entries))
	return entries, nil
}
