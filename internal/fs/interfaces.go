// internal/fs/interfaces.go

package fs

import (
	"bazil.org/fuse/fs"
)

// Directory is a read-only directory of the catalog
type Directory interface {
	fs.Node
	fs.NodeStringLookuper
	fs.HandleReadDirAller
}

// FileInterface is a read-only archive file
type FileInterface interface {
	fs.Node
	fs.NodeOpener
	fs.NodeGetxattrer
	fs.NodeListxattrer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fs.Handle
	fs.HandleReader
	fs.HandleReleaser
}

var (
	_ fs.FS               = (*CatalogFS)(nil)
	_ Directory           = (*Dir)(nil)
	_ FileInterface       = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
)
