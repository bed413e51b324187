// Package domain contains SDK-agnostic models for the Docker operations a
// test run needs. They are independent of any specific Docker client.
package domain

import (
	"time"
)

// Container represents a Docker container.
type Container struct {
	ID      string
	Name    string
	Image   string
	State   ContainerState
	Created time.Time
	Labels  map[string]string
	Mounts  []Mount
	Config  *ContainerConfig
}

// ContainerState represents the state of a container.
type ContainerState struct {
	Status     string
	Running    bool
	OOMKilled  bool
	Dead       bool
	ExitCode   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// ContainerConfig represents the configuration for creating a container.
type ContainerConfig struct {
	Image        string
	Cmd          []string
	Entrypoint   []string
	Env          []string
	WorkingDir   string
	User         string
	Labels       map[string]string
	Hostname     string
	AttachStdout bool
	AttachStderr bool
	Tty          bool

	HostConfig *HostConfig

	// Platform in "os/arch[/variant]" form; empty lets the daemon choose.
	Platform string

	// Container name (optional)
	Name string
}

// HostConfig contains the host-specific configuration for a container.
type HostConfig struct {
	// Volume bindings in format "host:container[:options]"
	Binds  []string
	Mounts []Mount

	// bridge, host, none, container:<id> or a user-defined network name
	NetworkMode string
	ExtraHosts  []string

	AutoRemove bool
}

// Mount represents a mount point of a container.
type Mount struct {
	Type     MountType
	Source   string
	Target   string
	ReadOnly bool
}

// MountType represents the type of mount.
type MountType string

const (
	MountTypeBind   MountType = "bind"
	MountTypeVolume MountType = "volume"
	MountTypeTmpfs  MountType = "tmpfs"
)

// ListOptions represents options for listing containers.
type ListOptions struct {
	All     bool
	Filters map[string][]string
}

// RemoveOptions represents options for removing a container.
type RemoveOptions struct {
	RemoveVolumes bool
	Force         bool
}

// WaitResponse contains the response from waiting for a container.
type WaitResponse struct {
	StatusCode int64
	Error      *WaitError
}

// WaitError represents an error from the container wait operation.
type WaitError struct {
	Message string
}

// LogOptions represents options for retrieving container logs.
type LogOptions struct {
	ShowStdout bool
	ShowStderr bool
	Since      string
	Timestamps bool
	Follow     bool
	Tail       string
}
