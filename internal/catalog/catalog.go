// Package catalog discovers components, layouts and variables in a
// postprocessing directory tree.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pparchive/internal/logging"
	"pparchive/internal/pathspec"
)

var (
	logger = logging.GetLogger().WithPrefix("catalog")
)

// DefaultInterpMarker ends the names of components interpolated onto a
// regular grid.
const DefaultInterpMarker = "1x1deg"

// VariableCatalog maps component names to their time-series variables.
type VariableCatalog map[string][]string

// Components returns the catalogued component names in sorted order.
func (c VariableCatalog) Components() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Explorer reads the directory tree of a postprocessing root. Every call
// lists the filesystem afresh.
type Explorer struct {
	extension    string
	interpMarker string
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithExtension sets the file extension of data files.
func WithExtension(ext string) Option {
	return func(e *Explorer) { e.extension = strings.TrimPrefix(ext, ".") }
}

// WithInterpMarker sets the component name suffix of interpolated grids.
func WithInterpMarker(marker string) Option {
	return func(e *Explorer) { e.interpMarker = marker }
}

// NewExplorer creates an Explorer.
func NewExplorer(opts ...Option) *Explorer {
	e := &Explorer{
		extension:    pathspec.Extension,
		interpMarker: DefaultInterpMarker,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Components lists the immediate subdirectories of root.
func (e *Explorer) Components(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// firstEntry returns the lexicographically first entry of dir.
func firstEntry(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoLayout, dir)
		}
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrNoLayout, dir)
	}
	return entries[0].Name(), nil
}

// LocalLayout returns the two-level layout (e.g. "annual/5yr") of component
// under kind, sampling the first entry of each level.
func (e *Explorer) LocalLayout(root, component string, kind pathspec.Kind) (string, error) {
	base := filepath.Join(root, component, string(kind))
	first, err := firstEntry(base)
	if err != nil {
		return "", err
	}
	second, err := firstEntry(filepath.Join(base, first))
	if err != nil {
		return "", err
	}
	return first + "/" + second, nil
}

// TimeFrequency returns the first level of the time-series layout.
func (e *Explorer) TimeFrequency(root, component string) (string, error) {
	layout, err := e.LocalLayout(root, component, pathspec.Timeseries)
	if err != nil {
		return "", err
	}
	return strings.SplitN(layout, "/", 2)[0], nil
}

// variableName extracts the variable of a data file name such as
// atmos.2000-2004.tas.nc. The name must end in the extension, so copies in
// progress (.gcp) and archives (.nc.tar) are skipped.
func (e *Explorer) variableName(filename string) (string, bool) {
	parts := strings.Split(filename, ".")
	if len(parts) < 2 || parts[len(parts)-1] != e.extension {
		return "", false
	}
	return parts[len(parts)-2], true
}

// Variables lists the distinct variable names in the time-series directory
// of component, in first-seen order. ok is false when component has no
// time-series data.
func (e *Explorer) Variables(root, component string) ([]string, bool, error) {
	layout, err := e.LocalLayout(root, component, pathspec.Timeseries)
	if errors.Is(err, ErrNoLayout) {
		logger.Debug("No ts directory in %s. Can't retrieve variables.", component)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entries, err := os.ReadDir(filepath.Join(root, component, string(pathspec.Timeseries), layout))
	if err != nil {
		return nil, false, fmt.Errorf("list variables of %s: %w", component, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return e.VariableNames(names), true, nil
}

// VariableNames extracts the distinct variable names of filenames in
// first-seen order, skipping names without the data file extension.
func (e *Explorer) VariableNames(filenames []string) []string {
	seen := make(map[string]bool)
	vars := []string{}
	for _, filename := range filenames {
		name, ok := e.variableName(filename)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		vars = append(vars, name)
	}
	return vars
}

// Catalog maps every component with time-series data to its variables.
func (e *Explorer) Catalog(root string) (VariableCatalog, error) {
	components, err := e.Components(root)
	if err != nil {
		return nil, err
	}
	catalog := make(VariableCatalog)
	for _, component := range components {
		vars, ok, err := e.Variables(root, component)
		if err != nil {
			return nil, err
		}
		if ok {
			catalog[component] = vars
		}
	}
	return catalog, nil
}

// FindComponents returns the components holding variable. No match is
// reported in the log and yields an empty result.
func (e *Explorer) FindComponents(root, variable string) ([]string, error) {
	catalog, err := e.Catalog(root)
	if err != nil {
		return nil, err
	}
	var found []string
	for _, component := range catalog.Components() {
		for _, v := range catalog[component] {
			if v == variable {
				logger.Debug("%s is in %s", variable, component)
				found = append(found, component)
				break
			}
		}
	}
	if len(found) == 0 {
		logger.Info("No %s in this pp.", variable)
	}
	return found, nil
}

// Filter narrows a component lookup.
type Filter struct {
	Require []string // Substrings every name must contain
	Ignore  []string // Substrings no name may contain
	Unique  bool     // Fail unless exactly one component matches
}

func (f Filter) matches(name string) bool {
	for _, r := range f.Require {
		if !strings.Contains(name, r) {
			return false
		}
	}
	for _, s := range f.Ignore {
		if strings.Contains(name, s) {
			return false
		}
	}
	return true
}

// FindUnique returns the components holding variable that pass filter. It
// fails with ErrNoMatch when none pass, and with an *AmbiguousError when
// filter.Unique is set and several pass.
func (e *Explorer) FindUnique(root, variable string, filter Filter) ([]string, error) {
	found, err := e.FindComponents(root, variable)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, component := range found {
		if filter.matches(component) {
			matched = append(matched, component)
		}
	}
	switch {
	case len(matched) == 0:
		return nil, fmt.Errorf("%w: variable %q", ErrNoMatch, variable)
	case len(matched) > 1 && filter.Unique:
		return nil, &AmbiguousError{Variable: variable, Candidates: matched}
	}
	return matched, nil
}

// IsInterpolated reports whether component holds data interpolated onto a
// regular grid, judged by the last underscore-separated part of its name.
func (e *Explorer) IsInterpolated(component string) bool {
	parts := strings.Split(component, "_")
	return parts[len(parts)-1] == e.interpMarker
}
