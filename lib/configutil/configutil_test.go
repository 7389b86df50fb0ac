package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	CacheDir string   `json:"cache_dir"`
	Verbose  bool     `json:"verbose"`
	Sites    []string `json:"sites"`
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "boinc.local.json5", LocalPath("boinc.json5"))
	require.Equal(t, filepath.Join("a", "b.local.json5"), LocalPath(filepath.Join("a", "b.json5")))
	require.Equal(t, "config.local", LocalPath("config"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "boinc.json5")

	_, err := ReadConfig[testConfig](name)
	require.True(t, os.IsNotExist(err))

	err = os.WriteFile(name, []byte(`{
		// comments are allowed
		cache_dir: "cache",
		sites: ["wcg"]
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{CacheDir: "cache", Sites: []string{"wcg"}}, cfg)

	err = os.WriteFile(LocalPath(name), []byte(`{cache_dir: "/tmp/boinc", verbose: true}`), 0600)
	require.NoError(t, err)

	cfg, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{CacheDir: "/tmp/boinc", Verbose: true, Sites: []string{"wcg"}}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "boinc.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{cache_dir: `), 0600))

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}
