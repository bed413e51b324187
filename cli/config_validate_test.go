package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-commerce/testrunner/test"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"registry image", func(c *Config) { c.Run.Image = "registry.local:5000/shop/tests:1.2" }, ""},
		{"bad image", func(c *Config) { c.Run.Image = "Python:3.12" }, "image: must be a valid Docker image reference"},
		{"empty image", func(c *Config) { c.Run.Image = "" }, "image: required field is empty"},
		{"relative workdir", func(c *Config) { c.Run.WorkingDir = "app" }, "workdir: must start with"},
		{"bad scheme", func(c *Config) { c.Run.DatabaseURL = "mysql://u:p@db/x" }, "database-url:"},
		{"empty url allowed", func(c *Config) { c.Run.DatabaseURL = "" }, ""},
		{"driver", func(c *Config) { c.Run.NormalizeDriver = "psycopg" }, ""},
		{"bad driver", func(c *Config) { c.Run.NormalizeDriver = "psy copg" }, "normalize-driver: must be alphanumeric"},
		{"env entries", func(c *Config) { c.Run.Environment = []string{"A=1", "PASSTHROUGH"} }, ""},
		{"bad env", func(c *Config) { c.Run.Environment = []string{"1A=x"} }, "must be KEY or KEY=VALUE"},
		{"bad pull", func(c *Config) { c.Run.Pull = "sometimes" }, "pull: must be one of"},
		{"bad label", func(c *Config) { c.Run.Labels = []string{"=x"} }, "must be key=value"},
		{"container name", func(c *Config) { c.Run.ContainerName = "shop-tests_1" }, ""},
		{"bad container name", func(c *Config) { c.Run.ContainerName = "shop tests" }, "container-name:"},
		{"platform", func(c *Config) { c.Run.Platform = "linux/arm64/v8" }, ""},
		{"bad platform", func(c *Config) { c.Run.Platform = "linux" }, "platform: must be os/arch"},
		{"negative runtime", func(c *Config) { c.Run.MaxRuntime = -time.Second }, "max-runtime: duration must be >= 0s"},
		{"short stop timeout", func(c *Config) { c.Run.StopTimeout = time.Millisecond }, "stop-timeout: duration must be >= 1s"},
		{"too many retries", func(c *Config) { c.Run.PullRetries = 11 }, "pull-retries: must be <= 10"},
		{"bad log level", func(c *Config) { c.Global.LogLevel = "loud" }, "log-level: unknown log level"},
		{"good log level", func(c *Config) { c.Global.LogLevel = "DEBUG" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewConfig(test.NewTestLogger())
			tt.mutate(c)

			err := ValidateConfig(c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidationFailed)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfigHidesSecrets(t *testing.T) {
	t.Parallel()

	c := NewConfig(test.NewTestLogger())
	c.Run.DatabaseURL = "mysql://root:hunter2@db/shop"
	c.Run.Environment = []string{"9TOKEN=hunter2"}

	err := ValidateConfig(c)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestFindClosestMatch(t *testing.T) {
	t.Parallel()

	known := mapstructureKeys(&RunConfig{})

	assert.Equal(t, "image", findClosestMatch("imgae", known))
	assert.Equal(t, "database-url", findClosestMatch("databse-url", known))
	assert.Equal(t, "test-command", findClosestMatch("Test-Comand", known))
	assert.Empty(t, findClosestMatch("completely-unrelated-key", known))
	assert.Empty(t, findClosestMatch("image", nil))
}

func TestLevenshteinDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"image", "image", 0},
		{"imgae", "image", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshteinDistance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestGenerateUnknownKeyWarnings(t *testing.T) {
	t.Parallel()

	w := GenerateUnknownKeyWarnings("run", []string{"netwrok", "zzz"}, []string{"network", "image"})
	require.Len(t, w, 2)
	assert.Equal(t, UnknownKeyWarning{Section: "run", Key: "netwrok", Suggestion: "network"}, w[0])
	assert.Equal(t, UnknownKeyWarning{Section: "run", Key: "zzz"}, w[1])
}
