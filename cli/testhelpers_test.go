package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e-commerce/testrunner/core"
	"github.com/e-commerce/testrunner/core/adapters/mock"
	"github.com/e-commerce/testrunner/core/domain"
)

// useMockDocker routes provider creation to an in-memory client that knows
// the default compose network. Tests using it must not run in parallel.
func useMockDocker(t *testing.T) *mock.DockerClient {
	t.Helper()

	client := mock.NewDockerClient()
	client.NetworkMock().SetNetworks([]domain.Network{{
		ID:     "net1",
		Name:   core.DefaultNetwork,
		Labels: map[string]string{"com.docker.compose.project": "e-commerce"},
	}})

	orig := newDockerProvider
	newDockerProvider = func(cfg *core.DockerProviderConfig) (*core.DockerProvider, error) {
		var logger core.Logger
		if cfg != nil {
			logger = cfg.Logger
		}
		p := core.NewDockerProviderFromClient(client, logger, nil)
		p.SetPullRetry(core.RetryConfig{})
		return p, nil
	}
	t.Cleanup(func() { newDockerProvider = orig })

	return client
}

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
