package dataset

import (
	"context"
	"errors"
	"strings"

	"pparchive/internal/pathspec"
	"pparchive/internal/stage"
)

// Mode selects how archive files are made readable before opening.
type Mode uint8

const (
	// Migrate recalls the files from tape in place.
	Migrate Mode = 1 << iota
	// Mirror copies the files to the scratch prefix and opens the copies.
	Mirror
)

func (m Mode) String() string {
	var parts []string
	if m&Migrate != 0 {
		parts = append(parts, "migrate")
	}
	if m&Mirror != 0 {
		parts = append(parts, "mirror")
	}
	if len(parts) == 0 {
		return "direct"
	}
	return strings.Join(parts, "|")
}

var (
	// ErrConflictingModes means Migrate and Mirror were both requested.
	ErrConflictingModes = errors.New("cannot both migrate and mirror")

	// ErrNoStager means the requested mode has no stager configured.
	ErrNoStager = errors.New("no stager configured for mode")
)

// Opener resolves path specs and opens them through a Collaborator,
// staging the files first when asked.
type Opener struct {
	collab   Collaborator
	migrator *stage.Migrator
	mirrorer *stage.Mirrorer
	prefix   string
}

// NewOpener creates an Opener. migrator and mirrorer may be nil when the
// corresponding mode is never used.
func NewOpener(collab Collaborator, migrator *stage.Migrator, mirrorer *stage.Mirrorer, prefix string) *Opener {
	return &Opener{
		collab:   collab,
		migrator: migrator,
		mirrorer: mirrorer,
		prefix:   prefix,
	}
}

// Open expands spec and opens the resulting files as one dataset.
func (o *Opener) Open(ctx context.Context, spec pathspec.Spec, mode Mode, opts Options) (*Dataset, error) {
	if mode&Migrate != 0 && mode&Mirror != 0 {
		return nil, ErrConflictingModes
	}

	paths, err := spec.Expand()
	if err != nil {
		return nil, err
	}
	logger.Debug("Spec for %s matched %d files (%s)", spec.Component, len(paths), mode)

	if len(paths) > 0 {
		switch {
		case mode&Migrate != 0:
			if o.migrator == nil {
				return nil, ErrNoStager
			}
			logger.Info("Issuing dmget for %d paths", len(paths))
			if err := o.migrator.EnsurePathsOnDisk(ctx, paths); err != nil {
				return nil, err
			}
		case mode&Mirror != 0:
			if o.mirrorer == nil {
				return nil, ErrNoStager
			}
			logger.Info("Mirroring paths at %s", o.prefix)
			mirrored, err := o.mirrorer.Mirror(ctx, paths, o.prefix)
			if err != nil {
				return nil, err
			}
			paths = mirrored
		}
	}

	return o.collab.OpenMulti(paths, opts)
}

// OpenStatic opens the static file of component.
func (o *Opener) OpenStatic(root, component string) (*Dataset, error) {
	return o.collab.OpenSingle(pathspec.StaticPath(root, component), DefaultOptions())
}
