package fs

import (
	"context"
	"io"
	"os"
	"sync"

	"pparchive/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is an archive file exposed read-only.
type File struct {
	fs         *CatalogFS
	path       *VirtualPath
	sourcePath *SourcePath
}

func (f *File) fullPath() string {
	return f.sourcePath.FullPath(f.fs.root)
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q (source: %q)",
		f.path.String(), f.sourcePath.String())

	info, err := os.Stat(f.fullPath())
	if err != nil {
		fileLogger.Warn("Cannot stat source file %q: %v", f.sourcePath.String(), err)
		return ToFuseError(NewFSError(OpGetattr, f.path.String(), err))
	}

	a.Mode = readOnly(info.Mode())
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime() // We don't track access time
	a.Ctime = info.ModTime() // We don't track creation time
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((info.Size() + 511) / 512)

	fileLogger.Trace("File attributes: mode=%v, size=%d, mtime=%v",
		a.Mode, a.Size, a.Mtime)
	return nil
}

// Open implements the NodeOpener interface. With stage-on-open configured
// it blocks until the file is back from tape.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path.String(), req.Flags)

	if !req.Flags.IsReadOnly() {
		fileLogger.Warn("Attempted write access to read-only file: %q", f.path.String())
		return nil, ToFuseError(NewFSError(OpOpen, f.path.String(), ErrReadOnly))
	}

	full := f.fullPath()
	if f.fs.migrator != nil {
		fileLogger.Info("Staging %q before open", full)
		if err := f.fs.migrator.EnsurePathsOnDisk(ctx, []string{full}); err != nil {
			fileLogger.Error("Failed to stage %q: %v", full, err)
			return nil, ToFuseError(NewFSError(OpStage, f.path.String(), err))
		}
	}

	file, err := os.Open(full)
	if err != nil {
		fileLogger.Error("Failed to open file: %v", err)
		return nil, ToFuseError(NewFSError(OpOpen, f.path.String(), err))
	}

	resp.Flags |= fuse.OpenKeepCache

	fileLogger.Debug("Successfully opened file %q", f.path.String())
	return &FileHandle{
		file: file,
		path: f.path.String(),
	}, nil
}

// Getxattr implements the NodeGetxattrer interface. XattrSource holds the
// archive path; XattrResident whether the file is on disk.
func (f *File) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	fileLogger.Debug("Getting xattr %q for file %q (source: %q)", req.Name, f.path.String(), f.sourcePath.String())

	switch req.Name {
	case XattrSource:
		resp.Xattr = []byte(f.fullPath())
	case XattrResident:
		if f.fs.query == nil {
			return fuse.ErrNoXattr
		}
		resident, err := f.fs.query.AllResident(ctx, [][]string{{f.fullPath()}})
		if err != nil {
			fileLogger.Error("Residency check failed for %q: %v", f.sourcePath.String(), err)
			return ToFuseError(NewFSError(OpGetxattr, f.path.String(), err))
		}
		resp.Xattr = boolXattr(resident)
	default:
		fileLogger.Trace("Xattr %q not found for source %q", req.Name, f.sourcePath.String())
		return fuse.ErrNoXattr
	}

	fileLogger.Trace("Retrieved xattr %q: %d bytes", req.Name, len(resp.Xattr))
	return nil
}

// Listxattr implements the NodeListxattrer interface, listing all extended attributes.
func (f *File) Listxattr(_ context.Context, _ *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	fileLogger.Debug("Listing xattrs for file %q", f.path.String())
	resp.Append(XattrSource)
	if f.fs.query != nil {
		resp.Append(XattrResident)
	}
	return nil
}

// FileHandle represents an open file handle.
// It manages access to an open file descriptor from the archive.
type FileHandle struct {
	file *os.File
	path string // For logging purposes
	mu   sync.RWMutex
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.RLock()
	defer fh.mu.RUnlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d",
		req.Size, fh.path, req.Offset)

	resp.Data = make([]byte, req.Size)
	n, err := fh.file.ReadAt(resp.Data, req.Offset)
	if err != nil && err != io.EOF {
		fileLogger.Error("Failed to read from file: %v", err)
		return ToFuseError(NewFSError(OpRead, fh.path, err))
	}

	resp.Data = resp.Data[:n]
	fileLogger.Trace("Successfully read %d bytes", n)
	return nil
}

// Release implements the HandleReleaser interface, closing the file handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Debug("Closing file %q", fh.path)
	return fh.file.Close()
}
