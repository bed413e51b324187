package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/e-commerce/testrunner/core/domain"
)

// ContainerServiceAdapter implements ports.ContainerService using Docker SDK.
type ContainerServiceAdapter struct {
	client *client.Client
}

// Create creates a new container.
func (s *ContainerServiceAdapter) Create(ctx context.Context, config *domain.ContainerConfig) (string, error) {
	platform, err := ParsePlatform(config.Platform)
	if err != nil {
		return "", err
	}

	resp, err := s.client.ContainerCreate(ctx,
		convertToContainerConfig(config),
		convertToHostConfig(config.HostConfig),
		nil,
		platform,
		config.Name,
	)
	if err != nil {
		return "", convertError(err)
	}

	return resp.ID, nil
}

// Start starts a container.
func (s *ContainerServiceAdapter) Start(ctx context.Context, containerID string) error {
	err := s.client.ContainerStart(ctx, containerID, container.StartOptions{})
	return convertError(err)
}

// Stop stops a container.
func (s *ContainerServiceAdapter) Stop(ctx context.Context, containerID string, timeout *time.Duration) error {
	opts := container.StopOptions{}
	if timeout != nil {
		seconds := stopTimeoutSeconds(*timeout)
		opts.Timeout = &seconds
	}
	err := s.client.ContainerStop(ctx, containerID, opts)
	return convertError(err)
}

// stopTimeoutSeconds rounds d up to whole seconds, the API's granularity.
func stopTimeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Remove removes a container.
func (s *ContainerServiceAdapter) Remove(ctx context.Context, containerID string, opts domain.RemoveOptions) error {
	err := s.client.ContainerRemove(ctx, containerID, container.RemoveOptions{
		RemoveVolumes: opts.RemoveVolumes,
		Force:         opts.Force,
	})
	return convertError(err)
}

func (s *ContainerServiceAdapter) inspect(ctx context.Context, containerID string) (*domain.Container, error) {
	resp, err := s.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, convertError(err)
	}

	return convertFromContainerJSON(&resp), nil
}

// List lists containers.
func (s *ContainerServiceAdapter) List(ctx context.Context, opts domain.ListOptions) ([]domain.Container, error) {
	listOpts := container.ListOptions{All: opts.All}

	if len(opts.Filters) > 0 {
		listOpts.Filters = filters.NewArgs()
		for key, values := range opts.Filters {
			for _, v := range values {
				listOpts.Filters.Add(key, v)
			}
		}
	}

	containers, err := s.client.ContainerList(ctx, listOpts)
	if err != nil {
		return nil, convertError(err)
	}

	result := make([]domain.Container, len(containers))
	for i := range containers {
		result[i] = convertFromAPIContainer(&containers[i])
	}
	return result, nil
}

// Wait waits for a container to stop.
func (s *ContainerServiceAdapter) Wait(ctx context.Context, containerID string) (<-chan domain.WaitResponse, <-chan error) {
	respCh := make(chan domain.WaitResponse, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		statusCh, sdkErrCh := s.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case err := <-sdkErrCh:
			errCh <- convertError(err)
		case status := <-statusCh:
			resp := domain.WaitResponse{StatusCode: status.StatusCode}
			if status.Error != nil {
				resp.Error = &domain.WaitError{Message: status.Error.Message}
			}
			respCh <- resp
		}
	}()

	return respCh, errCh
}

func (s *ContainerServiceAdapter) logs(ctx context.Context, containerID string, opts domain.LogOptions) (io.ReadCloser, error) {
	reader, err := s.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: opts.ShowStdout,
		ShowStderr: opts.ShowStderr,
		Since:      opts.Since,
		Timestamps: opts.Timestamps,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
	})
	if err != nil {
		return nil, convertError(err)
	}
	return reader, nil
}

// CopyLogs copies container logs to writers.
func (s *ContainerServiceAdapter) CopyLogs(ctx context.Context, containerID string, stdout, stderr io.Writer, opts domain.LogOptions) error {
	info, err := s.inspect(ctx, containerID)
	if err != nil {
		return err
	}

	reader, err := s.logs(ctx, containerID, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	// TTY containers have a single raw stream.
	if info.Config != nil && info.Config.Tty {
		if stdout == nil {
			stdout = io.Discard
		}
		if _, err = io.Copy(stdout, reader); err != nil {
			return fmt.Errorf("copying container logs: %w", err)
		}
		return nil
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if _, err = stdcopy.StdCopy(stdout, stderr, reader); err != nil {
		return fmt.Errorf("demultiplexing container logs: %w", err)
	}
	return nil
}

// Kill sends a signal to a container.
func (s *ContainerServiceAdapter) Kill(ctx context.Context, containerID string, signal string) error {
	if signal == "" {
		signal = "SIGKILL"
	}
	err := s.client.ContainerKill(ctx, containerID, signal)
	return convertError(err)
}
