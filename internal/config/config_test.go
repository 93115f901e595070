package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Empty config is filled with defaults.
	settings := new(Config)
	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultReleaseFeedURL, settings.ReleaseFeedURL)
	require.Equal(t, DefaultRepository, settings.Repository)
	require.Equal(t, DefaultRawDirectory, settings.RawDirectory)
	require.Zero(t, settings.Timeout, "requests are unbounded unless configured")
	require.Equal(t, DefaultUsernameEnv, settings.UsernameEnv)
	require.Equal(t, DefaultPasswordEnv, settings.PasswordEnv)

	require.ErrorIs(t, Validate(&Config{Timeout: -time.Second}), errNegativeTimeout)

	// Bad URL.
	settings = &Config{NexusURL: "not a url"}
	require.Error(t, Validate(settings))

	settings = &Config{SourceBaseURL: "ftp://example.com/"}
	require.Error(t, Validate(settings))

	// Negative retries.
	settings = &Config{Retries: -1}
	require.Error(t, Validate(settings))

	// Normalization of slashes.
	settings = &Config{
		NexusURL:     "http://127.0.0.1:8081",
		RawDirectory: "udunits2/",
	}
	require.NoError(t, Validate(settings))
	require.Equal(t, "http://127.0.0.1:8081/", settings.NexusURL)
	require.Equal(t, "/udunits2", settings.RawDirectory)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		NexusURL:   "https://nexus.local/",
		Repository: "units",
		Timeout:    10 * time.Second,
		Retries:    2,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.NexusURL, loaded.NexusURL)
	require.Equal(t, settings.Repository, loaded.Repository)
	require.Equal(t, settings.Timeout, loaded.Timeout)
	require.Equal(t, 2, loaded.Retries)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingExplicitFile verifies that an explicit path must exist.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestLoad_InvalidYAML verifies decoding errors are surfaced.
func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [not a duration"), DefaultFilePermissions))

	_, err := Load(path)
	require.Error(t, err)
}

// TestDefault returns a valid configuration.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultNexusURL, cfg.NexusURL)
	require.Equal(t, DefaultSourceBaseURL, cfg.SourceBaseURL)
}
