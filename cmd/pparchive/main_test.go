package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pparchive/internal/catalog"
	"pparchive/internal/config"
)

func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{
		"atmos/ts/annual/5yr/atmos.2000-2004.tas.nc",
		"atmos/ts/annual/5yr/atmos.2005-2009.tas.nc",
		"atmos/ts/annual/5yr/atmos.2000-2004.pr.nc",
		"atmos_1x1deg/ts/monthly/10yr/atmos_1x1deg.200001-200912.tas.nc",
		"ocean_month/ts/monthly/5yr/ocean_month.200001-200412.thetao.nc",
		"atmos/atmos.static.nc",
	} {
		full := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, nil, 0644))
	}
	return root
}

// run executes the command line with an isolated config and returns its
// standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvRoot, "")
	t.Setenv(config.EnvMirrorPrefix, "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPathCommand(t *testing.T) {
	root := newTestRoot(t)

	out, err := run(t, "--root", root, "-o", "text", "path", "atmos", "--layout", "annual/5yr", "--time", "2000-2004", "--suffix", "tas")
	require.NoError(t, err)
	assert.Equal(t, root+"/atmos/ts/annual/5yr/atmos.2000-2004.tas.nc\n", out)
}

func TestStaticCommand(t *testing.T) {
	out, err := run(t, "--root", "/archive/pp/", "-o", "text", "static", "ocean_month")
	require.NoError(t, err)
	assert.Equal(t, "/archive/pp/ocean_month/ocean_month.static.nc\n", out)
}

func TestCatalogCommandJSON(t *testing.T) {
	root := newTestRoot(t)

	out, err := run(t, "--root", root, "-o", "json", "catalog")
	require.NoError(t, err)

	var got map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string][]string{
		"atmos":        {"pr", "tas"},
		"atmos_1x1deg": {"tas"},
		"ocean_month":  {"thetao"},
	}, got)
}

func TestFindCommandAmbiguous(t *testing.T) {
	root := newTestRoot(t)

	_, err := run(t, "--root", root, "-o", "text", "find", "tas", "--unique")
	var ambiguous *catalog.AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, []string{"atmos", "atmos_1x1deg"}, ambiguous.Candidates)
}

func TestMissingRoot(t *testing.T) {
	_, err := run(t, "--root", "", "-o", "text", "components")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvRoot)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "-o", "xml", "frequency", "atmos")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pparchive.yaml")
	t.Setenv(config.EnvRoot, "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", path, "--root", "/archive/pp", "-o", "text", "config", "init"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, path, strings.TrimSpace(out.String()))

	m, err := config.NewManager(path)
	require.NoError(t, err)
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "/archive/pp", cfg.Root)
}

func TestMirrorPrefixNeedsUser(t *testing.T) {
	saved, savedManager := cfg, cfgManager
	defer func() { cfg, cfgManager = saved, savedManager }()

	var err error
	cfgManager, err = config.NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	cfg = config.Default()
	_, err = mirrorPrefix()
	assert.ErrorContains(t, err, "needs a user")

	cfg.User = "jdoe"
	prefix, err := mirrorPrefix()
	require.NoError(t, err)
	assert.Equal(t, "/vftmp/jdoe", prefix)

	cfg.User = ""
	cfg.Mirror.Prefix = "/scratch/shared"
	prefix, err = mirrorPrefix()
	require.NoError(t, err)
	assert.Equal(t, "/scratch/shared", prefix)
}

func TestComponentsGridFilter(t *testing.T) {
	root := newTestRoot(t)
	t.Cleanup(func() { componentsInterp, componentsNative = false, false })

	out, err := run(t, "--root", root, "-o", "text", "components")
	require.NoError(t, err)
	assert.Equal(t, "atmos\natmos_1x1deg\nocean_month\n", out)

	out, err = run(t, "--root", root, "-o", "text", "components", "--interp")
	require.NoError(t, err)
	assert.Equal(t, "atmos_1x1deg\n", out)

	out, err = run(t, "--root", root, "-o", "text", "components", "--interp=false", "--native")
	require.NoError(t, err)
	assert.Equal(t, "atmos\nocean_month\n", out)

	_, err = run(t, "--root", root, "-o", "text", "components", "--interp", "--native")
	assert.ErrorContains(t, err, "mutually exclusive")
}
