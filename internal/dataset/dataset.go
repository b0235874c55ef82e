// Package dataset opens multi-file postprocessed datasets from the archive.
package dataset

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"pparchive/internal/cftime"
)

var (
	// ErrNoFiles is returned when there is nothing to open.
	ErrNoFiles = errors.New("no files to open")

	// ErrNoVariable indicates a variable absent from every file.
	ErrNoVariable = errors.New("variable not found")
)

// Options are handed unchanged to the Collaborator.
type Options struct {
	// DecodeTimes decodes the time coordinate with its calendar.
	DecodeTimes bool
	// TimeVariable names the time coordinate.
	TimeVariable string
	// Variables, when set, restricts the dataset to these variables plus
	// the time coordinate.
	Variables []string
}

// DefaultOptions decodes the "time" coordinate.
func DefaultOptions() Options {
	return Options{DecodeTimes: true, TimeVariable: "time"}
}

// Dataset is a set of files read as one dataset along the time axis.
type Dataset struct {
	// Paths lists the files in concatenation order.
	Paths []string
	// Variables is the union of the files' variables in first-seen order.
	Variables []string
	// Attributes are the global attributes of the first file.
	Attributes map[string]interface{}
	// RawTime is the concatenated, undecoded time coordinate.
	RawTime []float64
	// Time is RawTime decoded with the units and calendar attributes; empty
	// unless decoding was requested.
	Time []cftime.Date
	// Calendar is the calendar of Time.
	Calendar cftime.Calendar

	groups []api.Group
}

// Close closes every underlying file.
func (d *Dataset) Close() {
	for _, g := range d.groups {
		g.Close()
	}
	d.groups = nil
}

// Variable returns the per-file pieces of name, skipping files without it.
func (d *Dataset) Variable(name string) ([]*api.Variable, error) {
	var pieces []*api.Variable
	for i, g := range d.groups {
		if !contains(g.ListVariables(), name) {
			continue
		}
		v, err := g.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("read %s from %s: %w", name, d.Paths[i], err)
		}
		pieces = append(pieces, v)
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoVariable, name)
	}
	return pieces, nil
}

// Float64s returns the values of name from every file, flattened and
// concatenated.
func (d *Dataset) Float64s(name string) ([]float64, error) {
	pieces, err := d.Variable(name)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, v := range pieces {
		values, err := toFloat64s(v.Values)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, values...)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toFloat64s flattens a scalar or (nested) slice of numbers.
func toFloat64s(values interface{}) ([]float64, error) {
	var out []float64
	var walk func(v reflect.Value) error
	walk = func(v reflect.Value) error {
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				if err := walk(v.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Float32, reflect.Float64:
			out = append(out, v.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(v.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(v.Uint()))
		case reflect.Interface:
			return walk(v.Elem())
		default:
			return fmt.Errorf("non-numeric values of kind %s", v.Kind())
		}
		return nil
	}
	if err := walk(reflect.ValueOf(values)); err != nil {
		return nil, err
	}
	return out, nil
}

func stringAttr(attrs api.AttributeMap, key string) string {
	if attrs == nil {
		return ""
	}
	v, ok := attrs.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
