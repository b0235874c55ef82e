package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pparchive/internal/archive"
	"pparchive/internal/catalog"
	"pparchive/internal/logging"
	"pparchive/internal/pathspec"
	"pparchive/internal/poll"
	"pparchive/internal/stage"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// Extended attributes of mounted files.
const (
	XattrResident = "user.pparchive.resident"
	XattrSource   = "user.pparchive.source"
)

// CatalogFS presents the time series of a postprocessing root as
// /<component>/<variable>/<file>, backed by the files of each component's
// first time-series layout. Listings are read from the archive on every
// request.
type CatalogFS struct {
	root       string            // Postprocessing root
	explorer   *catalog.Explorer // Directory discovery
	query      *archive.Query    // Residency; nil disables XattrResident
	migrator   *stage.Migrator   // Recall on open; nil opens directly
	allowOther bool              // Mount with allow_other
	conn       *fuse.Conn        // FUSE connection
	served     chan error        // Result of Serve
	uid        uint32            // User ID for filesystem operations
	gid        uint32            // Group ID for filesystem operations
}

// Option configures a CatalogFS.
type Option func(*CatalogFS)

// WithResidency reports tape residency through XattrResident.
func WithResidency(q *archive.Query) Option {
	return func(c *CatalogFS) { c.query = q }
}

// WithStageOnOpen recalls files from tape before they are opened.
func WithStageOnOpen(m *stage.Migrator) Option {
	return func(c *CatalogFS) { c.migrator = m }
}

// WithAllowOther lets other users access the mount.
func WithAllowOther() Option {
	return func(c *CatalogFS) { c.allowOther = true }
}

// NewCatalogFS creates a catalog filesystem over root.
func NewCatalogFS(root string, explorer *catalog.Explorer, opts ...Option) (*CatalogFS, error) {
	vfsLogger.Info("Creating catalog filesystem")
	vfsLogger.Debug("Postprocessing root: %s", root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("postprocessing root not readable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("postprocessing root %s is not a directory", root)
	}

	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
			vfsLogger.Debug("Using PUID from environment: %d", uid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
			vfsLogger.Debug("Using PGID from environment: %d", gid)
		}
	}

	c := &CatalogFS{
		root:     filepath.Clean(root),
		explorer: explorer,
		uid:      uid,
		gid:      gid,
	}
	for _, opt := range opts {
		opt(c)
	}
	vfsLogger.Debug("Residency attributes: %v, stage on open: %v", c.query != nil, c.migrator != nil)
	return c, nil
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (c *CatalogFS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{fs: c, path: NewVirtualPath("/")}, nil
}

// components lists the components that have time series.
func (c *CatalogFS) components() ([]string, error) {
	cat, err := c.explorer.Catalog(c.root)
	if err != nil {
		return nil, err
	}
	return cat.Components(), nil
}

func (c *CatalogFS) variables(component string) ([]string, error) {
	vars, ok, err := c.explorer.Variables(c.root, component)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPathNotFound
	}
	return vars, nil
}

// files lists the time-series files of variable in the local layout of
// component.
func (c *CatalogFS) files(component, variable string) ([]*SourcePath, error) {
	layout, err := c.explorer.LocalLayout(c.root, component, pathspec.Timeseries)
	if err != nil {
		return nil, err
	}
	spec := pathspec.Spec{
		Root:      c.root,
		Component: component,
		Kind:      pathspec.Timeseries,
		Layout:    layout,
		Time:      "*",
		Suffixes:  []string{variable},
	}
	paths, err := spec.Expand()
	if err != nil {
		return nil, err
	}

	files := make([]*SourcePath, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return nil, err
		}
		files = append(files, NewSourcePath(rel))
	}
	return files, nil
}

func waitForMount(mountpoint string) error {
	policy := poll.Policy{Interval: 100 * time.Millisecond, MaxAttempts: 30}
	_, err := poll.Until(context.Background(), policy, func(context.Context) (bool, error) {
		info, err := os.Stat(mountpoint)
		return err == nil && info.IsDir(), nil
	})
	if errors.Is(err, poll.ErrExhausted) {
		return fmt.Errorf("mount point not available after 3 seconds")
	}
	return err
}

// Mount mounts the catalog read-only and serves it in the background.
func (c *CatalogFS) Mount(mountPoint string) error {
	vfsLogger.Info("Mounting catalog filesystem")
	vfsLogger.Debug("Mount point: %s", mountPoint)
	vfsLogger.Debug("Postprocessing root: %s", c.root)
	vfsLogger.Debug("UID: %d, GID: %d", c.uid, c.gid)

	if _, err := os.ReadDir(c.root); err != nil {
		vfsLogger.Error("Cannot read postprocessing root: %v", err)
		return fmt.Errorf("postprocessing root not readable: %w", err)
	}

	mountOpts := []fuse.MountOption{
		fuse.FSName("pparchive"),
		fuse.Subtype("pparchive"),
		fuse.ReadOnly(),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
	}
	if c.allowOther {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}

	vfsLogger.Debug("Mounting with options: %+v", mountOpts)

	conn, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	c.conn = conn
	c.served = make(chan error, 1)

	go func() {
		err := fusefs.Serve(conn, c)
		if err != nil {
			vfsLogger.Error("FUSE server error: %v", err)
		}
		c.served <- err
	}()

	if err := waitForMount(mountPoint); err != nil {
		conn.Close()
		vfsLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	vfsLogger.Info("Filesystem mounted successfully")
	return nil
}

// Wait blocks until the server stops, normally after Unmount.
func (c *CatalogFS) Wait() error {
	if c.served == nil {
		return nil
	}
	err := <-c.served
	c.conn.Close()
	return err
}

// Unmount cleanly unmounts the filesystem.
func (c *CatalogFS) Unmount(mountPoint string) error {
	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if c.conn != nil {
		err := fuse.Unmount(mountPoint)
		if err != nil {
			vfsLogger.Error("Unmount failed: %v", err)
		} else {
			vfsLogger.Info("Unmount completed successfully")
		}
		return err
	}
	return nil
}
