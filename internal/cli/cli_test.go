package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flashplan/internal/config"
)

func TestCacheDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache", appName), dir)

	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	dir, err = cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-cache", appName), dir)
}

func TestFileCacheUsesConfigDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := filepath.Join(t.TempDir(), "renders")

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Cache.Dir = dir
	c := &CLI{Config: cfg}

	fc, err := c.fileCache()
	require.NoError(t, err)
	assert.Equal(t, dir, fc.Dir())
	assert.DirExists(t, dir)
}

func TestOpenOutputDash(t *testing.T) {
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })

	w, err := openOutput("-")
	require.NoError(t, err)
	_, err = w.Write([]byte("flash_primary:\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, "flash_primary:\n", buf.String())
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:8080", displayAddr(":8080"))
	assert.Equal(t, "0.0.0.0:9000", displayAddr("0.0.0.0:9000"))
	assert.Equal(t, "", displayAddr(""))
}
