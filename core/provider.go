package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"

	dockeradapter "github.com/e-commerce/testrunner/core/adapters/docker"
	"github.com/e-commerce/testrunner/core/domain"
	"github.com/e-commerce/testrunner/core/ports"
)

// pullProgressInterval spaces out the progress lines of an image pull.
const pullProgressInterval = 2 * time.Second

// Labels set on every container a test run creates.
const (
	LabelManaged = "testrunner.managed"
	LabelRunID   = "testrunner.run-id"
)

// PullPolicy decides when the image is pulled before a run.
type PullPolicy string

const (
	// PullMissing pulls only when the image is not present locally.
	PullMissing PullPolicy = "missing"
	// PullAlways pulls before every run.
	PullAlways PullPolicy = "always"
	// PullNever uses the local image or fails.
	PullNever PullPolicy = "never"
)

// ParsePullPolicy parses s, treating the empty string as PullMissing.
func ParsePullPolicy(s string) (PullPolicy, error) {
	switch p := PullPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PullMissing, nil
	case PullMissing, PullAlways, PullNever:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want missing, always or never)", ErrInvalidPullPolicy, s)
	}
}

// DockerProvider wraps a ports.DockerClient with the operations a test run
// needs, adding logging, registry auth and pull retries.
type DockerProvider struct {
	client       ports.DockerClient
	logger       Logger
	authProvider ports.AuthProvider
	pullRetry    RetryConfig
}

// DockerProviderConfig configures the SDK provider.
type DockerProviderConfig struct {
	// Host is the Docker host address (e.g., "unix:///var/run/docker.sock").
	// Empty uses DOCKER_HOST or the platform default.
	Host string
	// Logger for operation logging
	Logger Logger
	// AuthProvider for registry authentication (optional)
	AuthProvider ports.AuthProvider
	// PullRetry configures retries of failed pulls
	PullRetry RetryConfig
}

// NewDockerProvider creates a provider backed by the official Docker SDK.
func NewDockerProvider(cfg *DockerProviderConfig) (*DockerProvider, error) {
	clientConfig := dockeradapter.DefaultConfig()
	if cfg != nil && cfg.Host != "" {
		clientConfig.Host = cfg.Host
	}

	client, err := dockeradapter.NewClientWithConfig(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	p := &DockerProvider{client: client, pullRetry: DefaultPullRetryConfig()}
	if cfg != nil {
		p.logger = cfg.Logger
		p.authProvider = cfg.AuthProvider
		p.pullRetry = cfg.PullRetry
	}
	return p, nil
}

// NewDockerProviderFromClient creates a provider from an existing client.
func NewDockerProviderFromClient(client ports.DockerClient, logger Logger, authProvider ports.AuthProvider) *DockerProvider {
	return &DockerProvider{
		client:       client,
		logger:       logger,
		authProvider: authProvider,
		pullRetry:    DefaultPullRetryConfig(),
	}
}

// SetPullRetry replaces the pull retry configuration.
func (p *DockerProvider) SetPullRetry(cfg RetryConfig) {
	p.pullRetry = cfg
}

// CreateContainer creates a new container.
func (p *DockerProvider) CreateContainer(ctx context.Context, config *domain.ContainerConfig) (string, error) {
	containerID, err := p.client.Containers().Create(ctx, config)
	if err != nil {
		return "", WrapContainerError("create", config.Name, fmt.Errorf("%w: %w", ErrContainerCreateFailed, err))
	}

	p.logDebug("Created container %s", shortID(containerID))
	return containerID, nil
}

// StartContainer starts a container.
func (p *DockerProvider) StartContainer(ctx context.Context, containerID string) error {
	if err := p.client.Containers().Start(ctx, containerID); err != nil {
		return WrapContainerError("start", shortID(containerID), fmt.Errorf("%w: %w", ErrContainerStartFailed, err))
	}

	p.logDebug("Started container %s", shortID(containerID))
	return nil
}

// StopContainer stops a container, killing it after timeout.
func (p *DockerProvider) StopContainer(ctx context.Context, containerID string, timeout time.Duration) error {
	if err := p.client.Containers().Stop(ctx, containerID, &timeout); err != nil {
		return WrapContainerError("stop", shortID(containerID), fmt.Errorf("%w: %w", ErrContainerStopFailed, err))
	}

	p.logDebug("Stopped container %s", shortID(containerID))
	return nil
}

// RemoveContainer force-removes a container and its anonymous volumes.
// A container that is already gone is not an error.
func (p *DockerProvider) RemoveContainer(ctx context.Context, containerID string) error {
	opts := domain.RemoveOptions{Force: true, RemoveVolumes: true}

	if err := p.client.Containers().Remove(ctx, containerID, opts); err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return WrapContainerError("remove", shortID(containerID), fmt.Errorf("%w: %w", ErrContainerRemoveFailed, err))
	}

	p.logDebug("Removed container %s", shortID(containerID))
	return nil
}

// KillContainer sends SIGKILL to a container.
func (p *DockerProvider) KillContainer(ctx context.Context, containerID string) error {
	if err := p.client.Containers().Kill(ctx, containerID, "SIGKILL"); err != nil {
		return WrapContainerError("kill", shortID(containerID), fmt.Errorf("%w: %w", ErrContainerKillFailed, err))
	}

	p.logDebug("Killed container %s", shortID(containerID))
	return nil
}

// ListManagedContainers lists all containers created by test runs,
// running or not.
func (p *DockerProvider) ListManagedContainers(ctx context.Context) ([]domain.Container, error) {
	containers, err := p.client.Containers().List(ctx, domain.ListOptions{
		All:     true,
		Filters: map[string][]string{"label": {LabelManaged + "=true"}},
	})
	if err != nil {
		return nil, WrapContainerError("list", "", err)
	}

	return containers, nil
}

// WaitContainer waits for a container to exit.
func (p *DockerProvider) WaitContainer(ctx context.Context, containerID string) (int64, error) {
	respCh, errCh := p.client.Containers().Wait(ctx, containerID)

	for {
		select {
		case <-ctx.Done():
			return -1, fmt.Errorf("waiting for container: %w", ctx.Err())
		case err, ok := <-errCh:
			if !ok {
				// errCh closed, continue waiting for response
				errCh = nil
				continue
			}
			if err != nil {
				return -1, WrapContainerError("wait", shortID(containerID), err)
			}
		case resp, ok := <-respCh:
			if !ok {
				return -1, WrapContainerError("wait", shortID(containerID), ErrResponseChannelClosed)
			}
			if resp.Error != nil && resp.Error.Message != "" {
				return resp.StatusCode, WrapContainerError("wait", shortID(containerID),
					fmt.Errorf("%w: %s", ErrUnexpected, resp.Error.Message))
			}
			return resp.StatusCode, nil
		}
	}
}

// FollowLogs streams stdout and stderr of a container until its streams
// close or ctx is done.
func (p *DockerProvider) FollowLogs(ctx context.Context, containerID string, stdout, stderr io.Writer) error {
	opts := domain.LogOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	}

	if err := p.client.Containers().CopyLogs(ctx, containerID, stdout, stderr, opts); err != nil {
		return WrapContainerError("logs", shortID(containerID), err)
	}
	return nil
}

// PullImage pulls an image, retrying transient failures.
func (p *DockerProvider) PullImage(ctx context.Context, image, platform string) error {
	ref, err := dockeradapter.NormalizeImage(image)
	if err != nil {
		return WrapImageError("pull", image, err)
	}

	opts := domain.PullOptions{
		Reference: ref,
		Platform:  platform,
	}

	if p.authProvider != nil {
		registry := dockeradapter.ExtractRegistry(image)
		if auth, err := p.authProvider.GetEncodedAuth(registry); err == nil && auth != "" {
			opts.RegistryAuth = auth
			p.logDebug("Using registry auth for %s", registry)
		}
	}

	p.logNotice("Pulling image %s", ref)

	// A pull emits a message per layer and chunk; report a sample.
	progress := &rate.Sometimes{First: 1, Interval: pullProgressInterval}
	opts.OnProgress = func(msg domain.PullProgress) {
		progress.Do(func() {
			p.logNotice("Pulling image %s: %s", ref, pullProgressLine(msg))
		})
	}

	executor := NewRetryExecutor(p.loggerOrDiscard(), p.pullRetry)
	err = executor.Execute(ctx, "pull "+ref, func(ctx context.Context) error {
		return p.client.Images().PullAndWait(ctx, opts)
	})
	if err != nil {
		return WrapImageError("pull", image, fmt.Errorf("%w: %w", ErrImagePullFailed, err))
	}

	p.logNotice("Pulled image %s", ref)
	return nil
}

func pullProgressLine(msg domain.PullProgress) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{msg.ID, msg.Status, msg.Progress} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// HasImageLocally checks if an image exists locally.
func (p *DockerProvider) HasImageLocally(ctx context.Context, image string) (bool, error) {
	exists, err := p.client.Images().Exists(ctx, image)
	if err != nil {
		return false, WrapImageError("check", image, err)
	}

	return exists, nil
}

// EnsureImage makes image available locally according to policy.
func (p *DockerProvider) EnsureImage(ctx context.Context, image, platform string, policy PullPolicy) error {
	if policy == PullAlways {
		return p.PullImage(ctx, image, platform)
	}

	hasImage, err := p.HasImageLocally(ctx, image)
	if err != nil {
		return err
	}
	if hasImage {
		p.logDebug("Found image %s locally", image)
		return nil
	}

	if policy == PullNever {
		return WrapImageError("find", image, ErrLocalImageNotFound)
	}

	return p.PullImage(ctx, image, platform)
}

// FindNetwork looks up a network by name or ID.
func (p *DockerProvider) FindNetwork(ctx context.Context, name string) (*domain.Network, error) {
	network, err := p.client.Networks().Inspect(ctx, name)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, WrapNetworkError("find", name, ErrNetworkNotFound)
		}
		return nil, WrapNetworkError("inspect", name, err)
	}

	return network, nil
}

// ListComposeNetworks lists the networks docker compose created for its
// projects.
func (p *DockerProvider) ListComposeNetworks(ctx context.Context) ([]domain.Network, error) {
	networks, err := p.client.Networks().List(ctx, domain.NetworkListOptions{
		Filters: map[string][]string{"label": {domain.ComposeProjectLabel}},
	})
	if err != nil {
		return nil, WrapNetworkError("list", "", err)
	}

	return networks, nil
}

// Ping pings the Docker daemon.
func (p *DockerProvider) Ping(ctx context.Context) (*domain.PingResponse, error) {
	ping, err := p.client.System().Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinging docker: %w", err)
	}

	return ping, nil
}

// Version returns the daemon version.
func (p *DockerProvider) Version(ctx context.Context) (*domain.Version, error) {
	v, err := p.client.System().Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting docker version: %w", err)
	}

	return v, nil
}

// Close closes the Docker client.
func (p *DockerProvider) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("closing docker client: %w", err)
	}
	return nil
}

func (p *DockerProvider) logNotice(format string, args ...any) {
	if p.logger != nil {
		p.logger.Noticef(format, args...)
	}
}

func (p *DockerProvider) logDebug(format string, args ...any) {
	if p.logger != nil {
		p.logger.Debugf(format, args...)
	}
}

func (p *DockerProvider) loggerOrDiscard() Logger {
	if p.logger != nil {
		return p.logger
	}
	return discardLogger{}
}

type discardLogger struct{}

func (discardLogger) Criticalf(string, ...any) {}
func (discardLogger) Debugf(string, ...any)    {}
func (discardLogger) Errorf(string, ...any)    {}
func (discardLogger) Noticef(string, ...any)   {}
func (discardLogger) Warningf(string, ...any)  {}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
