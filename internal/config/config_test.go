package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFileOrEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MSGBOARD_PORT", "9001")
	t.Setenv("MSGBOARD_STORE_ROOT", "/tmp/custom-root")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Port)
	require.Equal(t, "/tmp/custom-root", cfg.StoreRoot)
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9500\nworkers: 8\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, 9500, cfg.Port)
	require.Equal(t, 8, cfg.Workers)
}

func TestLoadMissingExplicitConfigFileIsAnError(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

// TestLoadMalformedDefaultConfigFileIsAnError checks that a parse failure at
// the default search path surfaces as an error too, not just a missing
// file: only "no file present" is tolerated, never "file present but
// unreadable."
func TestLoadMalformedDefaultConfigFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	configDir := filepath.Join(dir, "message_board")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("port: [this is not valid yaml"), 0o644))

	_, err := Load(viper.New(), "")
	require.Error(t, err)
}

func TestLoadFlagValuesTakePriorityOverEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MSGBOARD_PORT", "9001")

	v := viper.New()
	v.Set("port", 7777) // simulates a bound CLI flag
	cfg, err := Load(v, "")
	require.NoError(t, err)
	require.Equal(t, 7777, cfg.Port)
}

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	d := Defaults()
	require.Equal(t, 8000, d.Port)
	require.Equal(t, "./data", d.StoreRoot)
	require.Equal(t, 4, d.Workers)
	require.Equal(t, "info", d.LogLevel)
	require.Equal(t, 10*time.Second, d.ShutdownTimeout)
}
