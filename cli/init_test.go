package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-commerce/testrunner/core"
	"github.com/e-commerce/testrunner/test"
)

func TestDefaultInitSettingsValidate(t *testing.T) {
	t.Parallel()

	s := defaultInitSettings()
	assert.NoError(t, validateImageInput(s.Image))
	assert.NoError(t, validateNetworkInput(s.Network))
	assert.NoError(t, validateDatabaseURLInput(s.DatabaseURL))
	assert.NoError(t, validateCommandInput(s.TestCommand))
	assert.Equal(t, string(core.PullMissing), s.Pull)
}

func TestInitInputValidators(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, validateImageInput("  "), ErrImageEmpty)
	assert.Error(t, validateImageInput("Python:3.12"))
	assert.NoError(t, validateImageInput("ghcr.io/acme/python:3.12-slim"))

	assert.ErrorIs(t, validateNetworkInput(""), ErrNetworkEmpty)
	assert.ErrorIs(t, validateCommandInput(" "), ErrCommandEmpty)

	assert.Error(t, validateDatabaseURLInput("mysql://db/x"))
	assert.Error(t, validateDatabaseURLInput(""))
}

func TestInitSettingsSaveRoundTrip(t *testing.T) {
	t.Parallel()

	s := defaultInitSettings()
	s.Network = "shop_default"
	s.Pull = string(core.PullNever)
	s.LogLevel = "debug"
	s.SaveFolder = "/tmp/reports"
	s.InstallCommand = ""

	path := filepath.Join(t.TempDir(), "nested", "testrunner.ini")
	require.NoError(t, s.save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	conf, err := BuildFromFile(path, test.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, conf.Validate())

	assert.Empty(t, conf.Warnings())
	assert.Equal(t, "debug", conf.Global.LogLevel)
	assert.Equal(t, "/tmp/reports", conf.Global.SaveFolder)
	assert.Equal(t, core.DefaultImage, conf.Run.Image)
	assert.Equal(t, "shop_default", conf.Run.Network)
	assert.Equal(t, core.DefaultDatabaseURL, conf.Run.DatabaseURL)
	assert.Empty(t, conf.Run.InstallCommand)
	assert.Equal(t, core.DefaultTestCommand, conf.Run.TestCommand)
	assert.Equal(t, "never", conf.Run.Pull)
}

func TestInitSettingsOmitsEmptyGlobals(t *testing.T) {
	t.Parallel()

	s := defaultInitSettings()
	s.LogLevel = ""

	global := s.toINI().Section(sectionGlobal)
	assert.False(t, global.HasKey("log-level"))
	assert.False(t, global.HasKey("save-folder"))
}
