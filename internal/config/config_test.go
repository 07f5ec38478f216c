package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration with all positional parameters filled.
func validConfig() *Config {
	return &Config{
		BuildDir:      "/tmp/build",
		InstallPrefix: "/usr",
		Arch:          "x64",
		OutputPath:    "/tmp/out.msi",
		WxsPath:       "/tmp/app.wxs",
		HeatPath:      "/usr/bin/wixl-heat",
		WixlPath:      "/usr/bin/wixl",
	}
}

// TestValidate checks required-field enforcement.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Any missing parameter is fatal.
	cfg := validConfig()
	cfg.Arch = ""
	require.Error(t, Validate(cfg))

	require.NoError(t, Validate(validConfig()))
}

// TestResolve_MissingStagingRoot verifies the fatal precondition for DESTDIR.
func TestResolve_MissingStagingRoot(t *testing.T) {
	t.Setenv(EnvStagingRoot, "")

	cfg := validConfig()
	err := Resolve(cfg)
	require.ErrorIs(t, err, ErrStagingRootNotSet)
}

// TestResolve_ManufacturerDefaulting verifies normalization of the optional setting.
func TestResolve_ManufacturerDefaulting(t *testing.T) {
	t.Setenv(EnvStagingRoot, "/tmp/destdir")

	// t.Setenv registers the restore; unset to simulate a missing variable.
	t.Setenv(EnvManufacturer, "placeholder")
	require.NoError(t, os.Unsetenv(EnvManufacturer))

	cfg := validConfig()
	require.NoError(t, Resolve(cfg))
	require.Equal(t, "/tmp/destdir", cfg.StagingRoot)
	require.Equal(t, DefaultManufacturer, cfg.Manufacturer)
}

// TestResolve verifies environment state is copied into the struct.
func TestResolve(t *testing.T) {
	t.Setenv(EnvStagingRoot, "/tmp/destdir")
	t.Setenv(EnvManufacturer, "ACME Corp")

	cfg := validConfig()
	require.NoError(t, Resolve(cfg))
	require.Equal(t, "/tmp/destdir", cfg.StagingRoot)
	require.Equal(t, "ACME Corp", cfg.Manufacturer)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, DefaultSettingsFilename)

	cfg := validConfig()
	cfg.Manufacturer = "ACME Corp"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.BuildDir, loaded.BuildDir)
	require.Equal(t, cfg.Arch, loaded.Arch)
	require.Equal(t, cfg.Manufacturer, loaded.Manufacturer)

	// StagingRoot is runtime state and must not be persisted.
	cfg.StagingRoot = "/tmp/destdir"
	require.NoError(t, Save(path, cfg))

	loaded, err = Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.StagingRoot)
}
