package ports

import (
	"context"
	"io"
	"time"

	"github.com/e-commerce/testrunner/core/domain"
)

// ContainerService provides operations for managing Docker containers.
type ContainerService interface {
	// Create creates a new container.
	// Returns the container ID on success.
	Create(ctx context.Context, config *domain.ContainerConfig) (string, error)

	// Start starts a created container.
	Start(ctx context.Context, containerID string) error

	// Stop stops a running container.
	// If timeout is nil, the daemon default is used before killing.
	Stop(ctx context.Context, containerID string, timeout *time.Duration) error

	// Remove removes a container.
	Remove(ctx context.Context, containerID string, opts domain.RemoveOptions) error

	// List returns the containers matching the options.
	List(ctx context.Context, opts domain.ListOptions) ([]domain.Container, error)

	// Wait blocks until a container stops and returns its exit status.
	// Returns two channels: one for the wait response, one for errors.
	Wait(ctx context.Context, containerID string) (<-chan domain.WaitResponse, <-chan error)

	// CopyLogs copies container logs to the provided writers,
	// demultiplexing stdout and stderr for non-TTY containers.
	CopyLogs(ctx context.Context, containerID string, stdout, stderr io.Writer, opts domain.LogOptions) error

	// Kill sends a signal to a container, SIGKILL when signal is empty.
	Kill(ctx context.Context, containerID string, signal string) error
}
