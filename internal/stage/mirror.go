package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pparchive/internal/archive"
	"pparchive/internal/poll"
)

// ErrNoPaths is returned when Mirror is called without paths.
var ErrNoPaths = errors.New("no paths to mirror")

// InProgressSuffix marks a copy that the copy tool has not finished.
const InProgressSuffix = ".gcp"

// MirrorOptions tunes the mirroring workflow.
type MirrorOptions struct {
	Policy poll.Policy // Polling for finished copies
	// SettleBefore is waited before the copy command is issued.
	SettleBefore time.Duration
	// SettleAfter is waited once every copy is visible.
	SettleAfter time.Duration
}

// DefaultMirrorOptions returns the copy tool's empirical settle times.
func DefaultMirrorOptions() MirrorOptions {
	return MirrorOptions{
		Policy:       poll.DefaultPolicy(),
		SettleBefore: 500 * time.Millisecond,
		SettleAfter:  500 * time.Millisecond,
	}
}

// Mirrorer copies archive files below a scratch prefix, keeping their
// absolute paths: /a/b/c.nc is mirrored to prefix/a/b/c.nc.
type Mirrorer struct {
	copier archive.Copier
	opts   MirrorOptions
}

// NewMirrorer creates a Mirrorer using copier.
func NewMirrorer(copier archive.Copier, opts MirrorOptions) *Mirrorer {
	return &Mirrorer{copier: copier, opts: opts}
}

// MirroredPath returns where path is mirrored below prefix.
func MirroredPath(prefix, path string) string {
	p := prefix + path
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Pending returns the paths that are neither mirrored below prefix nor
// being copied there.
func Pending(paths []string, prefix string) []string {
	var pending []string
	for _, p := range paths {
		mirrored := MirroredPath(prefix, p)
		if exists(mirrored) || exists(mirrored+InProgressSuffix) {
			continue
		}
		pending = append(pending, p)
	}
	return pending
}

// Mirror copies paths below prefix and blocks until every copy exists. All
// paths are assumed to share the parent directory of the first one. It
// returns the mirrored paths in input order.
func (m *Mirrorer) Mirror(ctx context.Context, paths []string, prefix string) ([]string, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}

	destination := MirroredPath(prefix, filepath.Dir(paths[0]))
	if err := os.MkdirAll(destination, 0755); err != nil {
		return nil, fmt.Errorf("create mirror directory %s: %w", destination, err)
	}

	pending := Pending(paths, prefix)
	logger.Info("Mirroring %d paths at %q (%d need copying)", len(paths), prefix, len(pending))

	if len(pending) > 0 {
		if err := poll.Sleep(ctx, m.opts.SettleBefore); err != nil {
			return nil, err
		}
		if err := m.copier.CopyFiles(ctx, pending, destination+"/"); err != nil {
			return nil, fmt.Errorf("copy to %s: %w", destination, err)
		}
	}

	mirrored := make([]string, 0, len(paths))
	for _, p := range paths {
		mirrored = append(mirrored, MirroredPath(prefix, p))
	}

	_, err := poll.Until(ctx, m.opts.Policy, func(context.Context) (bool, error) {
		for _, p := range mirrored {
			if !exists(p) {
				logger.Trace("Waiting for %q", p)
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("wait for mirror: %w", err)
	}
	if err := poll.Sleep(ctx, m.opts.SettleAfter); err != nil {
		return nil, err
	}

	logger.Info("Mirroring complete")
	return mirrored, nil
}

// MirrorOne mirrors a single path.
func (m *Mirrorer) MirrorOne(ctx context.Context, path, prefix string) (string, error) {
	mirrored, err := m.Mirror(ctx, []string{path}, prefix)
	if err != nil {
		return "", err
	}
	return mirrored[0], nil
}
