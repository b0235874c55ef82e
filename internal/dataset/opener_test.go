package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pparchive/internal/archive"
	"pparchive/internal/archive/archivetest"
	"pparchive/internal/pathspec"
	"pparchive/internal/poll"
	"pparchive/internal/stage"
)

type openCall struct {
	paths []string
	opts  Options
}

// recorder is a Collaborator that remembers what it was asked to open.
type recorder struct {
	multi  []openCall
	single []openCall
}

func (r *recorder) OpenMulti(paths []string, opts Options) (*Dataset, error) {
	r.multi = append(r.multi, openCall{paths: paths, opts: opts})
	return &Dataset{Paths: paths}, nil
}

func (r *recorder) OpenSingle(path string, opts Options) (*Dataset, error) {
	r.single = append(r.single, openCall{paths: []string{path}, opts: opts})
	return &Dataset{Paths: []string{path}}, nil
}

var fastPolicy = poll.Policy{Interval: time.Millisecond}

func newArchive(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "atmos", "ts", "annual", "5yr")
	require.NoError(t, os.MkdirAll(dir, 0755))
	var paths []string
	for _, name := range []string{"atmos.2000-2004.tas.nc", "atmos.2005-2009.tas.nc"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0644))
		paths = append(paths, p)
	}
	return root, paths
}

func tasSpec(root string) pathspec.Spec {
	return pathspec.Spec{
		Root:      root,
		Component: "atmos",
		Kind:      pathspec.Timeseries,
		Layout:    "annual/5yr",
		Time:      "*",
		Suffixes:  []string{"tas"},
	}
}

func TestOpenDirect(t *testing.T) {
	root, paths := newArchive(t)
	rec := &recorder{}
	o := NewOpener(rec, nil, nil, "")

	opts := Options{DecodeTimes: false, TimeVariable: "t", Variables: []string{"tas"}}
	ds, err := o.Open(context.Background(), tasSpec(root), 0, opts)
	require.NoError(t, err)

	assert.Equal(t, paths, ds.Paths)
	require.Len(t, rec.multi, 1)
	assert.Equal(t, opts, rec.multi[0].opts)
}

func TestOpenMigrate(t *testing.T) {
	root, paths := newArchive(t)
	fake := archivetest.New(nil, paths)
	fake.StageAfter = 1
	rec := &recorder{}
	o := NewOpener(rec, stage.NewMigrator(archive.NewQuery(fake), fastPolicy), nil, "")

	ds, err := o.Open(context.Background(), tasSpec(root), Migrate, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, paths, ds.Paths)
	assert.Equal(t, [][]string{paths}, fake.Submitted())
}

func TestOpenMirror(t *testing.T) {
	root, paths := newArchive(t)
	prefix := t.TempDir()
	fake := archivetest.New(nil, nil)
	rec := &recorder{}
	o := NewOpener(rec, nil, stage.NewMirrorer(fake, stage.MirrorOptions{Policy: fastPolicy}), prefix)

	ds, err := o.Open(context.Background(), tasSpec(root), Mirror, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, ds.Paths, 2)
	for i, p := range ds.Paths {
		assert.Equal(t, stage.MirroredPath(prefix, paths[i]), p)
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	assert.Len(t, fake.Copies(), 1)
}

func TestOpenConflictingModes(t *testing.T) {
	fake := archivetest.New(nil, nil)
	rec := &recorder{}
	o := NewOpener(rec,
		stage.NewMigrator(archive.NewQuery(fake), fastPolicy),
		stage.NewMirrorer(fake, stage.MirrorOptions{Policy: fastPolicy}),
		t.TempDir())

	_, err := o.Open(context.Background(), tasSpec("/nowhere"), Migrate|Mirror, DefaultOptions())
	assert.ErrorIs(t, err, ErrConflictingModes)
	assert.Empty(t, rec.multi)
	assert.Zero(t, fake.Listings())
	assert.Empty(t, fake.Copies())
}

func TestOpenNoMatches(t *testing.T) {
	fake := archivetest.New(nil, nil)
	rec := &recorder{}
	o := NewOpener(rec, stage.NewMigrator(archive.NewQuery(fake), fastPolicy), nil, "")

	ds, err := o.Open(context.Background(), tasSpec(t.TempDir()), Migrate, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, ds.Paths)
	assert.Empty(t, fake.Submitted())
}

func TestOpenMissingStager(t *testing.T) {
	root, _ := newArchive(t)
	o := NewOpener(&recorder{}, nil, nil, "")

	_, err := o.Open(context.Background(), tasSpec(root), Mirror, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoStager)
}

func TestOpenStatic(t *testing.T) {
	rec := &recorder{}
	o := NewOpener(rec, nil, nil, "")

	ds, err := o.OpenStatic("/pp/", "atmos")
	require.NoError(t, err)
	assert.Equal(t, []string{"/pp/atmos/atmos.static.nc"}, ds.Paths)
	require.Len(t, rec.single, 1)
	assert.True(t, rec.single[0].opts.DecodeTimes)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "direct", Mode(0).String())
	assert.Equal(t, "migrate", Migrate.String())
	assert.Equal(t, "migrate|mirror", (Migrate | Mirror).String())
}
