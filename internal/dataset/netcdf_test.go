package dataset

import (
	"errors"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attrs map[string]interface{}

func (a attrs) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	return keys
}

func (a attrs) Get(key string) (interface{}, bool) {
	v, ok := a[key]
	return v, ok
}

func (a attrs) GetType(string) (string, bool)   { return "", false }
func (a attrs) GetGoType(string) (string, bool) { return "", false }

// memGroup is an in-memory NetCDF file.
type memGroup struct {
	names  []string
	vars   map[string]*api.Variable
	global attrs
	closed bool
}

var _ api.Group = (*memGroup)(nil)

func (g *memGroup) Close()                       { g.closed = true }
func (g *memGroup) Attributes() api.AttributeMap { return g.global }
func (g *memGroup) ListVariables() []string      { return g.names }
func (g *memGroup) GetVariable(name string) (*api.Variable, error) {
	v, ok := g.vars[name]
	if !ok {
		return nil, errors.New("no such variable")
	}
	return v, nil
}
func (g *memGroup) GetVarGetter(string) (api.VarGetter, error) { return nil, errors.New("unsupported") }
func (g *memGroup) ListSubgroups() []string                    { return nil }
func (g *memGroup) GetGroup(string) (api.Group, error)         { return nil, errors.New("unsupported") }
func (g *memGroup) ListTypes() []string                        { return nil }
func (g *memGroup) GetType(string) (string, bool)              { return "", false }
func (g *memGroup) GetGoType(string) (string, bool)            { return "", false }

func timeseriesFile(title string, times interface{}, tas interface{}) *memGroup {
	return &memGroup{
		names: []string{"time", "lat", "tas"},
		vars: map[string]*api.Variable{
			"time": {
				Values:     times,
				Dimensions: []string{"time"},
				Attributes: attrs{"units": "days since 2000-01-01", "calendar": "noleap"},
			},
			"lat": {Values: []float32{-45, 45}, Dimensions: []string{"lat"}},
			"tas": {Values: tas, Dimensions: []string{"time", "lat"}},
		},
		global: attrs{"title": title},
	}
}

func newFakeNetCDF(files map[string]*memGroup) *NetCDF {
	return &NetCDF{open: func(path string) (api.Group, error) {
		g, ok := files[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return g, nil
	}}
}

func TestOpenMulti(t *testing.T) {
	first := timeseriesFile("first", []float64{0, 31}, [][]float32{{280, 281}, {282, 283}})
	second := timeseriesFile("second", []int32{59}, [][]float32{{284, 285}})
	n := newFakeNetCDF(map[string]*memGroup{"/pp/a.nc": first, "/pp/b.nc": second})

	ds, err := n.OpenMulti([]string{"/pp/a.nc", "/pp/b.nc"}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"/pp/a.nc", "/pp/b.nc"}, ds.Paths)
	assert.Equal(t, []string{"time", "lat", "tas"}, ds.Variables)
	assert.Equal(t, "first", ds.Attributes["title"])
	assert.Equal(t, []float64{0, 31, 59}, ds.RawTime)
	require.Len(t, ds.Time, 3)
	assert.Equal(t, "2000-02-01 00:00:00", ds.Time[1].String())
	assert.Equal(t, "2000-03-01 00:00:00", ds.Time[2].String())

	tas, err := ds.Float64s("tas")
	require.NoError(t, err)
	assert.Equal(t, []float64{280, 281, 282, 283, 284, 285}, tas)

	_, err = ds.Float64s("pr")
	assert.ErrorIs(t, err, ErrNoVariable)

	ds.Close()
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestOpenMultiOptions(t *testing.T) {
	file := timeseriesFile("only", []float64{0}, []float64{1, 2})
	n := newFakeNetCDF(map[string]*memGroup{"/pp/a.nc": file})

	ds, err := n.OpenSingle("/pp/a.nc", Options{Variables: []string{"tas"}})
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, []string{"time", "tas"}, ds.Variables)
	assert.Equal(t, []float64{0}, ds.RawTime)
	assert.Empty(t, ds.Time, "times are left undecoded")
}

func TestOpenMultiErrors(t *testing.T) {
	good := timeseriesFile("good", []float64{0}, []float64{1, 2})
	bad := timeseriesFile("bad", []string{"x"}, []float64{1, 2})
	n := newFakeNetCDF(map[string]*memGroup{"/pp/good.nc": good, "/pp/bad.nc": bad})

	_, err := n.OpenMulti(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = n.OpenMulti([]string{"/pp/good.nc", "/pp/missing.nc"}, DefaultOptions())
	assert.Error(t, err)
	assert.True(t, good.closed, "files opened before the failure are closed")

	good.closed = false
	_, err = n.OpenMulti([]string{"/pp/good.nc", "/pp/bad.nc"}, DefaultOptions())
	assert.Error(t, err)
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
}

func TestToFloat64s(t *testing.T) {
	tests := []struct {
		name     string
		in       interface{}
		expected []float64
		wantErr  bool
	}{
		{name: "scalar", in: float32(1.5), expected: []float64{1.5}},
		{name: "int16", in: []int16{1, -2}, expected: []float64{1, -2}},
		{name: "uint8", in: []uint8{7}, expected: []float64{7}},
		{name: "nested", in: [][]int64{{1, 2}, {3}}, expected: []float64{1, 2, 3}},
		{name: "interface", in: []interface{}{int8(4), 5.0}, expected: []float64{4, 5}},
		{name: "strings", in: []string{"a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toFloat64s(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func withTimeAttrs(g *memGroup, a attrs) *memGroup {
	g.vars["time"].Attributes = a
	return g
}

func TestOpenMultiPerFileUnits(t *testing.T) {
	first := withTimeAttrs(timeseriesFile("first", []float64{0}, []float64{1, 2}),
		attrs{"units": "days since 2000-01-01", "calendar": "noleap"})
	second := withTimeAttrs(timeseriesFile("second", []float64{0, 59}, [][]float64{{3, 4}, {5, 6}}),
		attrs{"units": "days since 2005-01-01", "calendar": "noleap"})
	n := newFakeNetCDF(map[string]*memGroup{"/pp/a.nc": first, "/pp/b.nc": second})

	ds, err := n.OpenMulti([]string{"/pp/a.nc", "/pp/b.nc"}, DefaultOptions())
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, []float64{0, 0, 59}, ds.RawTime)
	require.Len(t, ds.Time, 3)
	assert.Equal(t, "2000-01-01 00:00:00", ds.Time[0].String())
	assert.Equal(t, "2005-01-01 00:00:00", ds.Time[1].String())
	assert.Equal(t, "2005-03-01 00:00:00", ds.Time[2].String())
	assert.Equal(t, "noleap", string(ds.Calendar))
}

func TestOpenMultiMissingTimeUnits(t *testing.T) {
	first := timeseriesFile("first", []float64{0, 31}, [][]float64{{1, 2}, {3, 4}})
	second := withTimeAttrs(timeseriesFile("second", []float64{7}, []float64{5, 6}), attrs{})
	n := newFakeNetCDF(map[string]*memGroup{"/pp/a.nc": first, "/pp/b.nc": second})

	ds, err := n.OpenMulti([]string{"/pp/a.nc", "/pp/b.nc"}, DefaultOptions())
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, []float64{0, 31, 7}, ds.RawTime)
	assert.Empty(t, ds.Time, "times are left undecoded")
	assert.Empty(t, ds.Calendar)
}
