/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: eu-west-1\nmaxParallel: 8\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "eu-west-1", cfg.Region)
	require.Equal(t, 8, cfg.MaxParallel)
	// Untouched keys keep their defaults.
	require.Equal(t, DefaultConfig().CacheDir, cfg.CacheDir)
	require.Equal(t, DefaultConfig().BufferSize, cfg.BufferSize)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxParallel: 0\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
