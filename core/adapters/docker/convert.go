package docker

import (
	"fmt"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	networktypes "github.com/docker/docker/api/types/network"

	"github.com/e-commerce/testrunner/core/domain"
)

// convertError converts Docker SDK errors to domain errors, keeping the
// daemon's message.
func convertError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case cerrdefs.IsNotFound(err):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, err.Error())
	case cerrdefs.IsConflict(err):
		return fmt.Errorf("%w: %s", domain.ErrConflict, err.Error())
	case cerrdefs.IsUnauthorized(err):
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, err.Error())
	case cerrdefs.IsPermissionDenied(err):
		return fmt.Errorf("%w: %s", domain.ErrForbidden, err.Error())
	case cerrdefs.IsDeadlineExceeded(err):
		return fmt.Errorf("%w: %s", domain.ErrTimeout, err.Error())
	case cerrdefs.IsCanceled(err):
		return fmt.Errorf("%w: %s", domain.ErrCanceled, err.Error())
	case cerrdefs.IsUnavailable(err):
		return fmt.Errorf("%w: %s", domain.ErrConnectionFailed, err.Error())
	}

	return err
}

func convertToContainerConfig(c *domain.ContainerConfig) *containertypes.Config {
	return &containertypes.Config{
		Image:        c.Image,
		Cmd:          c.Cmd,
		Entrypoint:   c.Entrypoint,
		Env:          c.Env,
		WorkingDir:   c.WorkingDir,
		User:         c.User,
		Labels:       c.Labels,
		Hostname:     c.Hostname,
		AttachStdout: c.AttachStdout,
		AttachStderr: c.AttachStderr,
		Tty:          c.Tty,
	}
}

func convertToHostConfig(h *domain.HostConfig) *containertypes.HostConfig {
	if h == nil {
		return nil
	}

	hc := &containertypes.HostConfig{
		Binds:       h.Binds,
		NetworkMode: containertypes.NetworkMode(h.NetworkMode),
		ExtraHosts:  h.ExtraHosts,
		AutoRemove:  h.AutoRemove,
	}

	for _, m := range h.Mounts {
		hc.Mounts = append(hc.Mounts, mount.Mount{
			Type:     mount.Type(m.Type),
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	return hc
}

// convertFromContainerJSON converts SDK InspectResponse to domain Container.
func convertFromContainerJSON(c *containertypes.InspectResponse) *domain.Container {
	if c == nil || c.ContainerJSONBase == nil {
		return nil
	}

	result := &domain.Container{
		ID:      c.ID,
		Name:    strings.TrimPrefix(c.Name, "/"),
		Image:   c.Image,
		Created: parseTime(c.Created),
	}

	if c.State != nil {
		result.State = domain.ContainerState{
			Status:     string(c.State.Status),
			Running:    c.State.Running,
			OOMKilled:  c.State.OOMKilled,
			Dead:       c.State.Dead,
			ExitCode:   c.State.ExitCode,
			Error:      c.State.Error,
			StartedAt:  parseTime(c.State.StartedAt),
			FinishedAt: parseTime(c.State.FinishedAt),
		}
	}

	if c.Config != nil {
		result.Labels = c.Config.Labels
		result.Config = &domain.ContainerConfig{
			Image:        c.Config.Image,
			Cmd:          c.Config.Cmd,
			Entrypoint:   c.Config.Entrypoint,
			Env:          c.Config.Env,
			WorkingDir:   c.Config.WorkingDir,
			User:         c.Config.User,
			Labels:       c.Config.Labels,
			Hostname:     c.Config.Hostname,
			AttachStdout: c.Config.AttachStdout,
			AttachStderr: c.Config.AttachStderr,
			Tty:          c.Config.Tty,
		}
	}

	for _, m := range c.Mounts {
		result.Mounts = append(result.Mounts, domain.Mount{
			Type:     domain.MountType(m.Type),
			Source:   m.Source,
			Target:   m.Destination,
			ReadOnly: !m.RW,
		})
	}

	return result
}

// convertFromAPIContainer converts SDK Summary (list result) to domain Container.
func convertFromAPIContainer(c *containertypes.Summary) domain.Container {
	var name string
	if len(c.Names) > 0 {
		// The API returns names with a leading slash.
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return domain.Container{
		ID:      c.ID,
		Name:    name,
		Image:   c.Image,
		Created: time.Unix(c.Created, 0),
		Labels:  c.Labels,
		State: domain.ContainerState{
			Status:  string(c.State),
			Running: string(c.State) == "running",
		},
	}
}

func convertFromNetworkSummary(n *networktypes.Summary) domain.Network {
	return domain.Network{
		Name:       n.Name,
		ID:         n.ID,
		Created:    n.Created,
		Scope:      n.Scope,
		Driver:     n.Driver,
		Internal:   n.Internal,
		Attachable: n.Attachable,
		Labels:     n.Labels,
	}
}

func convertFromNetworkInspect(n *networktypes.Inspect) *domain.Network {
	return &domain.Network{
		Name:       n.Name,
		ID:         n.ID,
		Created:    n.Created,
		Scope:      n.Scope,
		Driver:     n.Driver,
		Internal:   n.Internal,
		Attachable: n.Attachable,
		Labels:     n.Labels,
	}
}

// parseTime parses a Docker timestamp string.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
