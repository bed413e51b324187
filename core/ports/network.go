package ports

import (
	"context"

	"github.com/e-commerce/testrunner/core/domain"
)

// NetworkService provides read access to Docker networks.
type NetworkService interface {
	// List returns a list of networks matching the options.
	List(ctx context.Context, opts domain.NetworkListOptions) ([]domain.Network, error)

	// Inspect returns detailed information about a network.
	Inspect(ctx context.Context, networkID string) (*domain.Network, error)
}
