package ports

import (
	"context"

	"github.com/e-commerce/testrunner/core/domain"
)

// SystemService provides operations for Docker system information.
type SystemService interface {
	// Ping pings the Docker server.
	Ping(ctx context.Context) (*domain.PingResponse, error)

	// Version returns version information.
	Version(ctx context.Context) (*domain.Version, error)
}
