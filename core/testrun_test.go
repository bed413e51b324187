package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-commerce/testrunner/core/adapters/mock"
	"github.com/e-commerce/testrunner/core/domain"
	"github.com/e-commerce/testrunner/test"
	"github.com/e-commerce/testrunner/test/testutil"
)

type testRunFixture struct {
	run    *TestRun
	client *mock.DockerClient
	logger *test.Logger
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestRunFixture(t *testing.T) *testRunFixture {
	t.Helper()

	client := mock.NewDockerClient()
	client.NetworkMock().SetNetworks([]domain.Network{{
		ID:     "net1",
		Name:   DefaultNetwork,
		Labels: map[string]string{"com.docker.compose.project": "e-commerce"},
	}})

	logger := test.NewTestLogger()
	provider := NewDockerProviderFromClient(client, logger, nil)
	provider.SetPullRetry(RetryConfig{})

	f := &testRunFixture{
		client: client,
		logger: logger,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	f.run = NewTestRun(provider, logger)
	f.run.Source = "/home/dev/e-commerce"
	f.run.Stdout = f.stdout
	f.run.Stderr = f.stderr
	return f
}

// blockingWait makes the container run until the wait context is done.
func blockingWait(ctx context.Context, id string) (<-chan domain.WaitResponse, <-chan error) {
	return make(chan domain.WaitResponse), make(chan error)
}

func TestTestRunDefaultInvocation(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	require.NoError(t, f.run.Run(context.Background()))

	creates, starts, stops, removes := f.client.ContainerMock().Calls()
	require.Len(t, creates, 1)
	cfg := creates[0].Config

	assert.Equal(t, "python:3.12-slim", cfg.Image)
	assert.Equal(t, []string{"sh", "-c", "pip install -r requirements.txt && pytest -q"}, cfg.Cmd)
	assert.Equal(t, []string{"TEST_DATABASE_URL=" + DefaultDatabaseURL}, cfg.Env)
	assert.Equal(t, "/app", cfg.WorkingDir)
	require.NotNil(t, cfg.HostConfig)
	assert.Equal(t, []string{"/home/dev/e-commerce:/app"}, cfg.HostConfig.Binds)
	assert.Equal(t, "e-commerce_default", cfg.HostConfig.NetworkMode)
	assert.Equal(t, "true", cfg.Labels[LabelManaged])
	assert.Equal(t, f.run.Execution().ID, cfg.Labels[LabelRunID])
	assert.False(t, cfg.Tty)

	assert.Equal(t, []string{"mock-container-id"}, starts)
	assert.Empty(t, stops)
	require.Len(t, removes, 1, "container is removed like docker run --rm")
	assert.Equal(t, "mock-container-id", removes[0].ContainerID)

	e := f.run.Execution()
	assert.False(t, e.Failed)
	assert.Equal(t, 0, e.ExitCode)
	assert.Equal(t, "mock-container-id", e.ContainerID)
	assert.True(t, f.logger.HasNotice("Tests passed"))
}

func TestTestRunPassesExitCodeThrough(t *testing.T) {
	t.Parallel()

	for _, code := range []int64{1, 2, 5, 127} {
		f := newTestRunFixture(t)
		f.client.ContainerMock().ExitCode = code

		err := f.run.Run(context.Background())

		require.Error(t, err)
		assert.True(t, IsNonZeroExitError(err))
		assert.Equal(t, int(code), ExitCode(err))
		assert.Equal(t, int(code), f.run.Execution().ExitCode)
		assert.True(t, f.logger.HasError("Tests failed with exit code"))

		_, _, _, removes := f.client.ContainerMock().Calls()
		assert.Len(t, removes, 1, "failed runs are cleaned up too")
	}
}

func TestTestRunStreamsAndCapturesOutput(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	cm := f.client.ContainerMock()
	cm.Stdout = "collected 3 items\n3 passed\n"
	cm.Stderr = "DeprecationWarning\n"

	require.NoError(t, f.run.Run(context.Background()))

	assert.Equal(t, "collected 3 items\n3 passed\n", f.stdout.String())
	assert.Equal(t, "DeprecationWarning\n", f.stderr.String())

	e := f.run.Execution()
	assert.Equal(t, "collected 3 items\n3 passed\n", e.GetStdout())
	assert.Equal(t, "DeprecationWarning\n", e.GetStderr())

	require.Len(t, cm.CopyLogsCalls, 1)
	opts := cm.CopyLogsCalls[0].Options
	assert.True(t, opts.Follow)
	assert.True(t, opts.ShowStdout)
	assert.True(t, opts.ShowStderr)
}

func TestTestRunWithoutWriters(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.Stdout = nil
	f.run.Stderr = nil
	f.client.ContainerMock().Stdout = "ok\n"

	require.NoError(t, f.run.Run(context.Background()))
	assert.Equal(t, "ok\n", f.run.Execution().GetStdout())
}

func TestTestRunOptions(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.Image = "python:3.11"
	f.run.Network = "shop_default"
	f.run.WorkingDir = "/src"
	f.run.DatabaseURL = "postgresql://ci:ci@pg:5432/shop_test"
	f.run.NormalizeDriver = "psycopg"
	f.run.Environment = []string{"PYTHONDONTWRITEBYTECODE=1"}
	f.run.InstallCommand = ""
	f.run.TestCommand = "pytest"
	f.run.ExtraArgs = []string{"-k", "orders and not slow"}
	f.run.User = "1000:1000"
	f.run.ContainerName = "shop-tests"
	f.run.Platform = "linux/amd64"
	f.run.TTY = true
	f.run.Labels = map[string]string{"ci.job": "42"}
	f.client.NetworkMock().SetNetworks([]domain.Network{{ID: "n2", Name: "shop_default"}})

	require.NoError(t, f.run.Run(context.Background()))

	creates, _, _, _ := f.client.ContainerMock().Calls()
	require.Len(t, creates, 1)
	cfg := creates[0].Config

	assert.Equal(t, "python:3.11", cfg.Image)
	assert.Equal(t, []string{"sh", "-c", "pytest -k 'orders and not slow'"}, cfg.Cmd)
	assert.Equal(t, []string{
		"TEST_DATABASE_URL=postgresql+psycopg://ci:ci@pg:5432/shop_test",
		"PYTHONDONTWRITEBYTECODE=1",
	}, cfg.Env)
	assert.Equal(t, "/src", cfg.WorkingDir)
	assert.Equal(t, []string{"/home/dev/e-commerce:/src"}, cfg.HostConfig.Binds)
	assert.Equal(t, "shop_default", cfg.HostConfig.NetworkMode)
	assert.Equal(t, "1000:1000", cfg.User)
	assert.Equal(t, "shop-tests", cfg.Name)
	assert.Equal(t, "linux/amd64", cfg.Platform)
	assert.True(t, cfg.Tty)
	assert.Equal(t, "42", cfg.Labels["ci.job"])
	assert.Equal(t, "true", cfg.Labels[LabelManaged])
}

func TestTestRunKeepsContainerWhenDeleteDisabled(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.Delete = false

	require.NoError(t, f.run.Run(context.Background()))

	_, _, _, removes := f.client.ContainerMock().Calls()
	assert.Empty(t, removes)
}

func TestTestRunMissingNetwork(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.client.NetworkMock().SetNetworks(nil)

	err := f.run.Run(context.Background())

	require.ErrorIs(t, err, ErrNetworkNotFound)
	assert.Contains(t, err.Error(), `"e-commerce" compose project`)
	assert.Equal(t, ExitCodeRuntimeError, ExitCode(err))

	creates, _, _, _ := f.client.ContainerMock().Calls()
	assert.Empty(t, creates, "no container without its network")
}

func TestTestRunBuiltinNetworkSkipsLookup(t *testing.T) {
	t.Parallel()

	for _, network := range []string{"host", "bridge", "none", ""} {
		f := newTestRunFixture(t)
		f.run.Network = network

		require.NoError(t, f.run.Run(context.Background()), network)
		assert.Empty(t, f.client.NetworkMock().InspectCalls, network)
	}
}

func TestTestRunImagePolicy(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.client.ImageMock().SetExistsResult(false)

	require.NoError(t, f.run.Run(context.Background()))
	assert.Equal(t, 1, f.client.ImageMock().PullCount())

	f = newTestRunFixture(t)
	f.run.Pull = PullNever
	f.client.ImageMock().SetExistsResult(false)

	err := f.run.Run(context.Background())
	require.ErrorIs(t, err, ErrLocalImageNotFound)
	assert.Equal(t, ExitCodeRuntimeError, ExitCode(err))
}

func TestTestRunInvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(r *TestRun)
		wantErr error
	}{
		{"relative source", func(r *TestRun) { r.Source = "." }, ErrInvalidMountSource},
		{"empty test command", func(r *TestRun) { r.TestCommand = "" }, ErrEmptyCommand},
		{"bad database url", func(r *TestRun) { r.DatabaseURL = "mysql://db/app" }, ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestRunFixture(t)
			tt.mutate(f.run)

			err := f.run.Run(context.Background())
			require.ErrorIs(t, err, tt.wantErr)

			assert.Empty(t, f.client.ImageMock().ExistsCalls, "nothing touches docker before the config is valid")
			assert.True(t, f.run.Execution().Failed)
		})
	}
}

func TestTestRunWithoutDatabaseURL(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.DatabaseURL = ""

	require.NoError(t, f.run.Run(context.Background()))

	creates, _, _, _ := f.client.ContainerMock().Calls()
	assert.Empty(t, creates[0].Config.Env)
	assert.True(t, f.logger.HasWarning("TEST_DATABASE_URL is not set"))
}

func TestTestRunPassesDatabaseURLVerbatim(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.DatabaseURL = "  postgresql://postgres:a%2Bb@db/ecommerce_test\n"

	require.NoError(t, f.run.Run(context.Background()))

	creates, _, _, _ := f.client.ContainerMock().Calls()
	require.Len(t, creates, 1)
	assert.Equal(t, []string{"TEST_DATABASE_URL=postgresql://postgres:a%2Bb@db/ecommerce_test"}, creates[0].Config.Env)
}

func TestTestRunNormalizeDriverKeepsExistingDriver(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.DatabaseURL = "postgresql+asyncpg://postgres:a%2Bb@db/ecommerce_test"
	f.run.NormalizeDriver = "psycopg"

	require.NoError(t, f.run.Run(context.Background()))

	creates, _, _, _ := f.client.ContainerMock().Calls()
	require.Len(t, creates, 1)
	assert.Equal(t, []string{"TEST_DATABASE_URL=postgresql+asyncpg://postgres:a%2Bb@db/ecommerce_test"}, creates[0].Config.Env)
}

func TestTestRunNeverLogsPassword(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.client.ContainerMock().ExitCode = 1

	_ = f.run.Run(context.Background())
	assert.False(t, f.logger.Contains("pass123"))
}

func TestTestRunCreateFailure(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.client.ContainerMock().OnCreate = func(context.Context, *domain.ContainerConfig) (string, error) {
		return "", errors.New("Conflict. The container name is already in use")
	}

	err := f.run.Run(context.Background())
	require.ErrorIs(t, err, ErrContainerCreateFailed)
	assert.Equal(t, ExitCodeRuntimeError, ExitCode(err))

	_, starts, _, removes := f.client.ContainerMock().Calls()
	assert.Empty(t, starts)
	assert.Empty(t, removes)
}

func TestTestRunStartFailureRemovesContainer(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.client.ContainerMock().OnStart = func(context.Context, string) error {
		return errors.New("bind source path does not exist")
	}

	err := f.run.Run(context.Background())
	require.ErrorIs(t, err, ErrContainerStartFailed)

	_, _, _, removes := f.client.ContainerMock().Calls()
	assert.Len(t, removes, 1)
}

func TestTestRunMaxRuntime(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.MaxRuntime = 20 * time.Millisecond
	f.run.StopTimeout = 2 * time.Second
	f.client.ContainerMock().OnWait = blockingWait

	err := f.run.Run(context.Background())

	require.ErrorIs(t, err, ErrMaxTimeRunning)
	assert.Equal(t, ExitCodeRuntimeError, ExitCode(err))

	_, _, stops, removes := f.client.ContainerMock().Calls()
	require.Len(t, stops, 1)
	assert.Equal(t, 2*time.Second, *stops[0].Timeout)
	assert.Len(t, removes, 1)
}

func TestTestRunInterrupted(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	cm := f.client.ContainerMock()
	cm.OnWait = blockingWait

	var removedWithLiveContext atomic.Bool
	cm.OnRemove = func(ctx context.Context, id string, opts domain.RemoveOptions) error {
		removedWithLiveContext.Store(ctx.Err() == nil)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.run.Run(ctx) }()

	testutil.Eventually(t, func() bool {
		_, starts, _, _ := cm.Calls()
		return len(starts) == 1
	})
	cancel()

	err, ok := testutil.WaitForChan(t, done, 5*time.Second)
	require.True(t, ok, "run did not stop after cancellation")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitCodeInterrupted, ExitCode(err))
	assert.True(t, f.run.Execution().Canceled)

	_, _, stops, removes := cm.Calls()
	assert.Len(t, stops, 1)
	assert.Len(t, removes, 1)
	assert.True(t, removedWithLiveContext.Load(), "cleanup must not inherit the canceled context")
	assert.True(t, f.logger.HasWarning("interrupted"))
}

func TestTestRunKillsContainerWhenStopFails(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.MaxRuntime = 20 * time.Millisecond
	cm := f.client.ContainerMock()
	cm.OnWait = blockingWait
	cm.OnStop = func(context.Context, string, *time.Duration) error {
		return context.DeadlineExceeded
	}

	err := f.run.Run(context.Background())
	require.ErrorIs(t, err, ErrMaxTimeRunning)

	kills := cm.Kills()
	require.Len(t, kills, 1)
	assert.Equal(t, "mock-container-id", kills[0].ContainerID)
	assert.Equal(t, "SIGKILL", kills[0].Signal)
	assert.True(t, f.logger.HasWarning("Killing container"))

	_, _, _, removes := cm.Calls()
	assert.Len(t, removes, 1)
}

func TestTestRunStoppedContainerIsNotKilled(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.run.MaxRuntime = 20 * time.Millisecond
	f.client.ContainerMock().OnWait = blockingWait

	require.ErrorIs(t, f.run.Run(context.Background()), ErrMaxTimeRunning)
	assert.Empty(t, f.client.ContainerMock().Kills())
}

func TestTestRunLogStreamError(t *testing.T) {
	t.Parallel()

	f := newTestRunFixture(t)
	f.client.ContainerMock().OnCopyLogs = func(context.Context, string, io.Writer, io.Writer, domain.LogOptions) error {
		return errors.New("unexpected EOF")
	}

	require.NoError(t, f.run.Run(context.Background()), "the exit code decides the result, not the log stream")
	assert.True(t, f.logger.HasWarning("Failed to stream container output"))
}

func TestComposeProjectOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "e-commerce", composeProjectOf("e-commerce_default"))
	assert.Equal(t, "custom", composeProjectOf("custom"))
}
