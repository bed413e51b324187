// Package ports defines the port interfaces for Docker operations.
// These interfaces abstract the Docker client implementation so the test
// run can be exercised against an in-memory client.
package ports

// DockerClient is the main interface for Docker operations.
type DockerClient interface {
	// Containers returns the container service interface.
	Containers() ContainerService

	// Images returns the image service interface.
	Images() ImageService

	// Networks returns the network service interface.
	Networks() NetworkService

	// System returns the system service interface.
	System() SystemService

	// Close closes the client and releases resources.
	Close() error
}
