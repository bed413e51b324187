package mock

import (
	"context"
	"sync"

	"github.com/e-commerce/testrunner/core/domain"
)

// SystemService is a mock implementation of ports.SystemService.
type SystemService struct {
	mu sync.RWMutex

	OnPing    func(ctx context.Context) (*domain.PingResponse, error)
	OnVersion func(ctx context.Context) (*domain.Version, error)

	PingCalls    int
	VersionCalls int
}

// NewSystemService creates a new mock SystemService.
func NewSystemService() *SystemService {
	return &SystemService{}
}

// Ping pings the mock daemon.
func (s *SystemService) Ping(ctx context.Context) (*domain.PingResponse, error) {
	s.mu.Lock()
	s.PingCalls++
	s.mu.Unlock()

	if s.OnPing != nil {
		return s.OnPing(ctx)
	}
	return &domain.PingResponse{APIVersion: "1.51", OSType: "linux"}, nil
}

// Version returns mock version information.
func (s *SystemService) Version(ctx context.Context) (*domain.Version, error) {
	s.mu.Lock()
	s.VersionCalls++
	s.mu.Unlock()

	if s.OnVersion != nil {
		return s.OnVersion(ctx)
	}
	return &domain.Version{
		Version:    "28.5.2",
		APIVersion: "1.51",
		Os:         "linux",
		Arch:       "amd64",
	}, nil
}
