package ports

import (
	"context"

	"github.com/e-commerce/testrunner/core/domain"
)

// ImageService provides operations for managing Docker images.
type ImageService interface {
	// PullAndWait pulls an image and waits for completion.
	// Errors reported inside the progress stream are returned.
	PullAndWait(ctx context.Context, opts domain.PullOptions) error

	// Exists checks if an image exists locally.
	Exists(ctx context.Context, imageRef string) (bool, error)
}

// AuthProvider provides authentication for registry operations.
type AuthProvider interface {
	// GetAuthConfig returns the authentication configuration for a registry.
	GetAuthConfig(registry string) (domain.AuthConfig, error)

	// GetEncodedAuth returns base64-encoded authentication for a registry.
	GetEncodedAuth(registry string) (string, error)
}
