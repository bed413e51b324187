package mock

import (
	"context"
	"sync"

	"github.com/e-commerce/testrunner/core/domain"
)

// NetworkService is a mock implementation of ports.NetworkService.
type NetworkService struct {
	mu sync.RWMutex

	// Callbacks for customizing behavior
	OnList    func(ctx context.Context, opts domain.NetworkListOptions) ([]domain.Network, error)
	OnInspect func(ctx context.Context, networkID string) (*domain.Network, error)

	// Call tracking
	ListCalls    []domain.NetworkListOptions
	InspectCalls []string

	// Simulated data
	Networks []domain.Network
}

// NewNetworkService creates a new mock NetworkService.
func NewNetworkService() *NetworkService {
	return &NetworkService{}
}

// List lists networks.
func (s *NetworkService) List(ctx context.Context, opts domain.NetworkListOptions) ([]domain.Network, error) {
	s.mu.Lock()
	s.ListCalls = append(s.ListCalls, opts)
	networks := s.Networks
	s.mu.Unlock()

	if s.OnList != nil {
		return s.OnList(ctx, opts)
	}
	return networks, nil
}

// Inspect returns network information by ID or name.
func (s *NetworkService) Inspect(ctx context.Context, networkID string) (*domain.Network, error) {
	s.mu.Lock()
	s.InspectCalls = append(s.InspectCalls, networkID)
	networks := s.Networks
	s.mu.Unlock()

	if s.OnInspect != nil {
		return s.OnInspect(ctx, networkID)
	}

	for i := range networks {
		if networks[i].ID == networkID || networks[i].Name == networkID {
			n := networks[i]
			return &n, nil
		}
	}

	return nil, &domain.NetworkNotFoundError{Network: networkID}
}

// SetNetworks sets the networks returned by List() and Inspect().
func (s *NetworkService) SetNetworks(networks []domain.Network) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Networks = networks
}
