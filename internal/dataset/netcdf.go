package dataset

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"pparchive/internal/cftime"
	"pparchive/internal/logging"
)

var (
	logger = logging.GetLogger().WithPrefix("dataset")
)

// Collaborator turns file paths into datasets.
type Collaborator interface {
	OpenMulti(paths []string, opts Options) (*Dataset, error)
	OpenSingle(path string, opts Options) (*Dataset, error)
}

// NetCDF reads NetCDF files natively (CDF and HDF5 formats).
type NetCDF struct {
	open func(path string) (api.Group, error)
}

var _ Collaborator = (*NetCDF)(nil)

// NewNetCDF creates a NetCDF collaborator.
func NewNetCDF() *NetCDF {
	return &NetCDF{open: netcdf.Open}
}

// OpenSingle opens one file.
func (n *NetCDF) OpenSingle(path string, opts Options) (*Dataset, error) {
	return n.OpenMulti([]string{path}, opts)
}

// OpenMulti opens paths in order and concatenates their time coordinates,
// decoding each file's values with that file's units and calendar. A time
// variable without units leaves the whole axis undecoded.
// On error every file opened so far is closed.
func (n *NetCDF) OpenMulti(paths []string, opts Options) (*Dataset, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if opts.TimeVariable == "" {
		opts.TimeVariable = "time"
	}

	ds := &Dataset{Paths: append([]string(nil), paths...)}
	seen := make(map[string]bool)
	decode := opts.DecodeTimes

	for i, path := range paths {
		g, err := n.open(path)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		ds.groups = append(ds.groups, g)
		logger.Trace("Opened %s", path)

		if i == 0 {
			ds.Attributes = attributeValues(g.Attributes())
		}
		for _, name := range g.ListVariables() {
			if seen[name] || !keep(name, opts) {
				continue
			}
			seen[name] = true
			ds.Variables = append(ds.Variables, name)
		}

		if !contains(g.ListVariables(), opts.TimeVariable) {
			continue
		}
		tv, err := g.GetVariable(opts.TimeVariable)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("read %s from %s: %w", opts.TimeVariable, path, err)
		}
		values, err := toFloat64s(tv.Values)
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("%s in %s: %w", opts.TimeVariable, path, err)
		}
		ds.RawTime = append(ds.RawTime, values...)

		if !decode {
			continue
		}
		units := stringAttr(tv.Attributes, "units")
		if units == "" {
			logger.Debug("%s in %s has no units, leaving times undecoded", opts.TimeVariable, path)
			decode = false
			ds.Time = nil
			ds.Calendar = ""
			continue
		}
		cal, err := cftime.ParseCalendar(stringAttr(tv.Attributes, "calendar"))
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("%s in %s: %w", opts.TimeVariable, path, err)
		}
		dates, err := cftime.DecodeAll(values, units, string(cal))
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("decode %s in %s: %w", opts.TimeVariable, path, err)
		}
		ds.Time = append(ds.Time, dates...)
		if ds.Calendar == "" {
			ds.Calendar = cal
		}
	}

	logger.Debug("Opened dataset of %d files with %d variables", len(paths), len(ds.Variables))
	return ds, nil
}

func keep(name string, opts Options) bool {
	if len(opts.Variables) == 0 || name == opts.TimeVariable {
		return true
	}
	return contains(opts.Variables, name)
}

func attributeValues(attrs api.AttributeMap) map[string]interface{} {
	out := make(map[string]interface{})
	if attrs == nil {
		return out
	}
	for _, key := range attrs.Keys() {
		if v, ok := attrs.Get(key); ok {
			out[key] = v
		}
	}
	return out
}
