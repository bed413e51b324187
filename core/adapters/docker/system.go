package docker

import (
	"context"

	"github.com/docker/docker/client"

	"github.com/e-commerce/testrunner/core/domain"
)

// SystemServiceAdapter implements ports.SystemService using Docker SDK.
type SystemServiceAdapter struct {
	client *client.Client
}

// Ping pings the Docker server.
func (s *SystemServiceAdapter) Ping(ctx context.Context) (*domain.PingResponse, error) {
	ping, err := s.client.Ping(ctx)
	if err != nil {
		return nil, convertError(err)
	}

	return &domain.PingResponse{
		APIVersion: ping.APIVersion,
		OSType:     ping.OSType,
	}, nil
}

// Version returns version information.
func (s *SystemServiceAdapter) Version(ctx context.Context) (*domain.Version, error) {
	v, err := s.client.ServerVersion(ctx)
	if err != nil {
		return nil, convertError(err)
	}

	return &domain.Version{
		Version:       v.Version,
		APIVersion:    v.APIVersion,
		MinAPIVersion: v.MinAPIVersion,
		GitCommit:     v.GitCommit,
		GoVersion:     v.GoVersion,
		Os:            v.Os,
		Arch:          v.Arch,
		KernelVersion: v.KernelVersion,
	}, nil
}
