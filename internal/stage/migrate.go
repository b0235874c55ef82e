// Package stage makes archive files available for reading, either by
// migrating them from tape to disk in place or by mirroring them to a
// scratch location.
package stage

import (
	"context"
	"fmt"

	"pparchive/internal/archive"
	"pparchive/internal/logging"
	"pparchive/internal/poll"
)

var (
	logger = logging.GetLogger().WithPrefix("stage")
)

// Migrator drives tape-to-disk migration.
type Migrator struct {
	query  *archive.Query
	policy poll.Policy
}

// NewMigrator creates a Migrator polling residency with policy.
func NewMigrator(query *archive.Query, policy poll.Policy) *Migrator {
	return &Migrator{query: query, policy: policy}
}

// EnsureOnDisk requests migration of every path in groups once, then blocks
// until all of them are resident. With an unbounded policy it only returns
// early when ctx is done.
func (m *Migrator) EnsureOnDisk(ctx context.Context, groups [][]string) error {
	var paths []string
	for _, group := range groups {
		paths = append(paths, group...)
	}
	if len(paths) == 0 {
		return nil
	}

	logger.Info("Issuing migration request for %d paths", len(paths))
	if err := m.query.RequestMigration(ctx, paths...); err != nil {
		return fmt.Errorf("request migration: %w", err)
	}

	attempts, err := poll.Until(ctx, m.policy, func(ctx context.Context) (bool, error) {
		return m.query.AllResident(ctx, groups)
	})
	if err != nil {
		return fmt.Errorf("wait for migration: %w", err)
	}
	logger.Info("Migration complete after %d checks", attempts)
	return nil
}

// EnsurePathsOnDisk is EnsureOnDisk with every path listed separately.
func (m *Migrator) EnsurePathsOnDisk(ctx context.Context, paths []string) error {
	groups := make([][]string, 0, len(paths))
	for _, p := range paths {
		groups = append(groups, []string{p})
	}
	return m.EnsureOnDisk(ctx, groups)
}
