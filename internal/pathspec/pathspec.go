// Package pathspec builds archive paths from postprocessing naming
// conventions.
//
// Time-series and time-average files live at
//
//	root/component/kind/layout/component.time.suffix.nc
//
// and static grid files at root/component/component.static.nc.
package pathspec

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"pparchive/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("pathspec")
)

// Kind is the averaging kind of a postprocessed stream.
type Kind string

const (
	// Timeseries data; the filename suffix is a variable name.
	Timeseries Kind = "ts"
	// Timeaverage data; the suffix is "ann" or a month number.
	Timeaverage Kind = "av"
)

// Extension is the file extension of postprocessed output.
const Extension = "nc"

// ParseKind accepts the short directory names as well as the long forms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "ts", "timeseries":
		return Timeseries, nil
	case "av", "timeaverage":
		return Timeaverage, nil
	}
	return "", fmt.Errorf("unknown averaging kind %q (want ts or av)", s)
}

// collapse removes doubled separators left by empty segments.
func collapse(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// TimeseriesOrAveragePath returns the path (possibly containing glob
// wildcards) of a postprocessed file. Inputs are not validated.
func TimeseriesOrAveragePath(root, component string, kind Kind, layout, time, suffix string) string {
	filename := strings.Join([]string{component, time, suffix, Extension}, ".")
	path := strings.Join([]string{root, component, string(kind), layout, filename}, "/")
	return collapse(path)
}

// StaticPath returns the path of the static grid file for component.
func StaticPath(root, component string) string {
	filename := strings.Join([]string{component, "static", Extension}, ".")
	return collapse(strings.Join([]string{root, component, filename}, "/"))
}

// Spec describes the location of a dataset in the archive.
type Spec struct {
	Root      string
	Component string
	Kind      Kind
	Layout    string
	Time      string
	// Suffixes holds one or more variable names (ts) or averaging
	// suffixes (av).
	Suffixes []string
}

// Patterns returns one path pattern per suffix, in order.
func (s Spec) Patterns() []string {
	patterns := make([]string, 0, len(s.Suffixes))
	for _, suffix := range s.Suffixes {
		patterns = append(patterns, TimeseriesOrAveragePath(s.Root, s.Component, s.Kind, s.Layout, s.Time, suffix))
	}
	return patterns
}

// Expand globs every pattern against the filesystem. Matches of one
// pattern are sorted; patterns keep their order. No matches is not an error.
func (s Spec) Expand() ([]string, error) {
	var paths []string
	for _, pattern := range s.Patterns() {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		sort.Strings(matches)
		logger.Debug("Pattern %q matched %d files", pattern, len(matches))
		paths = append(paths, matches...)
	}
	return paths, nil
}
