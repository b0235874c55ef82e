// Package archive queries and drives the hierarchical storage system that
// holds postprocessed output: tape retrieval, on-disk residency, the
// retrieval queue, and bulk copies to scratch.
package archive

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pparchive/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("archive")
)

// Tape is the capability set of the tape management subsystem.
type Tape interface {
	// SubmitMigration enqueues retrieval of paths and returns without
	// waiting for it to finish.
	SubmitMigration(ctx context.Context, paths []string) error
	// ListResidency returns the line-oriented residency listing of paths.
	ListResidency(ctx context.Context, paths []string) (string, error)
	// ListQueue returns the line-oriented listing of outstanding retrievals.
	ListQueue(ctx context.Context) (string, error)
}

// Copier copies archive files into a scratch directory.
type Copier interface {
	CopyFiles(ctx context.Context, sources []string, destDir string) error
}

// Markers that flag a residency line as on disk: regular (disk only) and
// dual-state (disk and tape).
var residentMarkers = []string{"(REG)", "(DUL)"}

// ResidencyMap maps a listed path to whether it is resident on disk.
type ResidencyMap map[string]bool

// Paths returns the keys in sorted order.
func (m ResidencyMap) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// AllResident reports whether every listed path is on disk. An empty map
// is vacuously resident.
func (m ResidencyMap) AllResident() bool {
	for _, resident := range m {
		if !resident {
			return false
		}
	}
	return true
}

// ParseResidency parses residency-listing output. The last
// whitespace-delimited token of each line is the path.
func ParseResidency(output string) ResidencyMap {
	residency := make(ResidencyMap)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		path := fields[len(fields)-1]
		resident := false
		for _, marker := range residentMarkers {
			if strings.Contains(line, marker) {
				resident = true
				break
			}
		}
		residency[path] = resident
	}
	return residency
}

// Query answers residency and queue questions against a Tape.
type Query struct {
	tape Tape
}

// NewQuery creates a Query backed by tape.
func NewQuery(tape Tape) *Query {
	return &Query{tape: tape}
}

// RequestMigration submits one retrieval for all paths.
func (q *Query) RequestMigration(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	logger.Debug("Requesting migration of %d paths", len(paths))
	return q.tape.SubmitMigration(ctx, paths)
}

// expand resolves glob patterns. A pattern without matches is kept as is so
// the listing command reports on it.
func expand(paths []string) []string {
	var out []string
	for _, p := range paths {
		if !strings.ContainsAny(p, "*?[") {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(p)
		if err != nil || len(matches) == 0 {
			out = append(out, p)
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out
}

// Residency lists the residency of paths, which may be files, directories
// or glob patterns. The map may contain entries for siblings of the
// requested paths.
func (q *Query) Residency(ctx context.Context, paths ...string) (ResidencyMap, error) {
	out, err := q.tape.ListResidency(ctx, expand(paths))
	if err != nil {
		return nil, err
	}
	residency := ParseResidency(out)
	logger.Trace("Residency of %v: %v", paths, residency)
	return residency, nil
}

// covered reports whether path is resident according to residency. Listing
// tools may print either the path as given or its base name. A directory
// is resident when everything listed for it is.
func covered(path string, residency ResidencyMap) bool {
	if resident, ok := residency[path]; ok {
		return resident
	}
	if resident, ok := residency[filepath.Base(path)]; ok {
		return resident
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return len(residency) > 0 && residency.AllResident()
	}
	return false
}

// AllResident reports whether every path of every group is on disk right
// now. Each group is listed with one command invocation.
func (q *Query) AllResident(ctx context.Context, groups [][]string) (bool, error) {
	for _, group := range groups {
		residency, err := q.Residency(ctx, group...)
		if err != nil {
			return false, err
		}
		if !residency.AllResident() {
			return false, nil
		}
		for _, p := range expand(group) {
			if !covered(p, residency) {
				logger.Trace("Path %q not yet resident", p)
				return false, nil
			}
		}
	}
	return true, nil
}

// PendingMigrations returns the queue lines that mention user.
func (q *Query) PendingMigrations(ctx context.Context, user string) ([]string, error) {
	out, err := q.tape.ListQueue(ctx)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if user != "" && strings.Contains(line, user) {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// UserHasPendingMigrations reports whether user has outstanding retrievals.
func (q *Query) UserHasPendingMigrations(ctx context.Context, user string) (bool, error) {
	lines, err := q.PendingMigrations(ctx, user)
	if err != nil {
		return false, err
	}
	return len(lines) > 0, nil
}
