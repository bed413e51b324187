// Package mock provides in-memory implementations of the ports interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/e-commerce/testrunner/core/domain"
	"github.com/e-commerce/testrunner/core/ports"
)

// DockerClient is a mock implementation of ports.DockerClient.
type DockerClient struct {
	mu sync.RWMutex

	containers *ContainerService
	images     *ImageService
	networks   *NetworkService
	system     *SystemService

	closed   bool
	closeErr error
}

// NewDockerClient creates a new mock DockerClient.
func NewDockerClient() *DockerClient {
	return &DockerClient{
		containers: NewContainerService(),
		images:     NewImageService(),
		networks:   NewNetworkService(),
		system:     NewSystemService(),
	}
}

// Containers returns the container service.
func (c *DockerClient) Containers() ports.ContainerService {
	return c.containers
}

// Images returns the image service.
func (c *DockerClient) Images() ports.ImageService {
	return c.images
}

// Networks returns the network service.
func (c *DockerClient) Networks() ports.NetworkService {
	return c.networks
}

// System returns the system service.
func (c *DockerClient) System() ports.SystemService {
	return c.system
}

// ContainerMock returns the concrete container mock for configuring callbacks.
func (c *DockerClient) ContainerMock() *ContainerService { return c.containers }

// ImageMock returns the concrete image mock.
func (c *DockerClient) ImageMock() *ImageService { return c.images }

// NetworkMock returns the concrete network mock.
func (c *DockerClient) NetworkMock() *NetworkService { return c.networks }

// SystemMock returns the concrete system mock.
func (c *DockerClient) SystemMock() *SystemService { return c.system }

// Close closes the client.
func (c *DockerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

// SetCloseError sets the error returned by Close().
func (c *DockerClient) SetCloseError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeErr = err
}

// IsClosed returns true if the client has been closed.
func (c *DockerClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ContainerService is a mock implementation of ports.ContainerService.
type ContainerService struct {
	mu sync.RWMutex

	// Callbacks for customizing behavior
	OnCreate   func(ctx context.Context, config *domain.ContainerConfig) (string, error)
	OnStart    func(ctx context.Context, containerID string) error
	OnStop     func(ctx context.Context, containerID string, timeout *time.Duration) error
	OnRemove   func(ctx context.Context, containerID string, opts domain.RemoveOptions) error
	OnList     func(ctx context.Context, opts domain.ListOptions) ([]domain.Container, error)
	OnWait     func(ctx context.Context, containerID string) (<-chan domain.WaitResponse, <-chan error)
	OnCopyLogs func(ctx context.Context, containerID string, stdout, stderr io.Writer, opts domain.LogOptions) error
	OnKill     func(ctx context.Context, containerID string, signal string) error

	// Simulated container output used when OnCopyLogs is nil.
	Stdout string
	Stderr string
	// Simulated exit code used when OnWait is nil.
	ExitCode int64

	// Call tracking
	CreateCalls   []CreateContainerCall
	StartCalls    []string
	StopCalls     []StopContainerCall
	RemoveCalls   []RemoveContainerCall
	ListCalls     []domain.ListOptions
	WaitCalls     []string
	CopyLogsCalls []LogsCall
	KillCalls     []KillCall
}

// CreateContainerCall represents a call to Create().
type CreateContainerCall struct {
	Config *domain.ContainerConfig
}

// StopContainerCall represents a call to Stop().
type StopContainerCall struct {
	ContainerID string
	Timeout     *time.Duration
}

// RemoveContainerCall represents a call to Remove().
type RemoveContainerCall struct {
	ContainerID string
	Options     domain.RemoveOptions
}

// LogsCall represents a call to Logs() or CopyLogs().
type LogsCall struct {
	ContainerID string
	Options     domain.LogOptions
}

// KillCall represents a call to Kill().
type KillCall struct {
	ContainerID string
	Signal      string
}

// NewContainerService creates a new mock ContainerService.
func NewContainerService() *ContainerService {
	return &ContainerService{}
}

// Create creates a container.
func (s *ContainerService) Create(ctx context.Context, config *domain.ContainerConfig) (string, error) {
	s.mu.Lock()
	s.CreateCalls = append(s.CreateCalls, CreateContainerCall{Config: config})
	s.mu.Unlock()

	if s.OnCreate != nil {
		return s.OnCreate(ctx, config)
	}
	return "mock-container-id", nil
}

// Start starts a container.
func (s *ContainerService) Start(ctx context.Context, containerID string) error {
	s.mu.Lock()
	s.StartCalls = append(s.StartCalls, containerID)
	s.mu.Unlock()

	if s.OnStart != nil {
		return s.OnStart(ctx, containerID)
	}
	return nil
}

// Stop stops a container.
func (s *ContainerService) Stop(ctx context.Context, containerID string, timeout *time.Duration) error {
	s.mu.Lock()
	s.StopCalls = append(s.StopCalls, StopContainerCall{ContainerID: containerID, Timeout: timeout})
	s.mu.Unlock()

	if s.OnStop != nil {
		return s.OnStop(ctx, containerID, timeout)
	}
	return nil
}

// Remove removes a container.
func (s *ContainerService) Remove(ctx context.Context, containerID string, opts domain.RemoveOptions) error {
	s.mu.Lock()
	s.RemoveCalls = append(s.RemoveCalls, RemoveContainerCall{ContainerID: containerID, Options: opts})
	s.mu.Unlock()

	if s.OnRemove != nil {
		return s.OnRemove(ctx, containerID, opts)
	}
	return nil
}

// List lists containers.
func (s *ContainerService) List(ctx context.Context, opts domain.ListOptions) ([]domain.Container, error) {
	s.mu.Lock()
	s.ListCalls = append(s.ListCalls, opts)
	s.mu.Unlock()

	if s.OnList != nil {
		return s.OnList(ctx, opts)
	}
	return []domain.Container{}, nil
}

// Wait waits for a container to stop.
func (s *ContainerService) Wait(ctx context.Context, containerID string) (<-chan domain.WaitResponse, <-chan error) {
	s.mu.Lock()
	s.WaitCalls = append(s.WaitCalls, containerID)
	exitCode := s.ExitCode
	s.mu.Unlock()

	if s.OnWait != nil {
		return s.OnWait(ctx, containerID)
	}

	respCh := make(chan domain.WaitResponse, 1)
	errCh := make(chan error, 1)
	respCh <- domain.WaitResponse{StatusCode: exitCode}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

// CopyLogs writes the simulated output to the writers.
func (s *ContainerService) CopyLogs(ctx context.Context, containerID string, stdout, stderr io.Writer, opts domain.LogOptions) error {
	s.mu.Lock()
	s.CopyLogsCalls = append(s.CopyLogsCalls, LogsCall{ContainerID: containerID, Options: opts})
	outStr, errStr := s.Stdout, s.Stderr
	s.mu.Unlock()

	if s.OnCopyLogs != nil {
		return s.OnCopyLogs(ctx, containerID, stdout, stderr, opts)
	}

	if stdout != nil && outStr != "" {
		if _, err := io.WriteString(stdout, outStr); err != nil {
			return fmt.Errorf("copying container logs: %w", err)
		}
	}
	if stderr != nil && errStr != "" {
		if _, err := io.WriteString(stderr, errStr); err != nil {
			return fmt.Errorf("copying container logs: %w", err)
		}
	}
	return nil
}

// Kill sends a signal to a container.
func (s *ContainerService) Kill(ctx context.Context, containerID string, signal string) error {
	s.mu.Lock()
	s.KillCalls = append(s.KillCalls, KillCall{ContainerID: containerID, Signal: signal})
	s.mu.Unlock()

	if s.OnKill != nil {
		return s.OnKill(ctx, containerID, signal)
	}
	return nil
}

// Kills returns a snapshot of the Kill calls made so far.
func (s *ContainerService) Kills() []KillCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]KillCall(nil), s.KillCalls...)
}

// Calls returns a snapshot of the lifecycle calls made so far.
func (s *ContainerService) Calls() (creates []CreateContainerCall, starts []string, stops []StopContainerCall, removes []RemoveContainerCall) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CreateContainerCall(nil), s.CreateCalls...),
		append([]string(nil), s.StartCalls...),
		append([]StopContainerCall(nil), s.StopCalls...),
		append([]RemoveContainerCall(nil), s.RemoveCalls...)
}
