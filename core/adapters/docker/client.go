// Package docker provides an adapter for the official Docker SDK.
package docker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/docker/docker/client"

	"github.com/e-commerce/testrunner/core/ports"
)

// Client implements ports.DockerClient using the official Docker SDK.
type Client struct {
	sdk *client.Client

	containers *ContainerServiceAdapter
	images     *ImageServiceAdapter
	networks   *NetworkServiceAdapter
	system     *SystemServiceAdapter
}

// ClientConfig contains configuration for the Docker client.
type ClientConfig struct {
	// Host is the Docker host address (e.g., "unix:///var/run/docker.sock").
	// Empty means DOCKER_HOST or the platform default.
	Host string

	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		DialTimeout:           30 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
	}
}

// NewClientWithConfig creates a new Docker client with custom configuration.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}

	if config.Host != "" {
		opts = append(opts, client.WithHost(config.Host))
	}

	// TLS hosts keep the SDK's own transport so DOCKER_CERT_PATH is honored.
	if httpClient := createHTTPClient(config); httpClient != nil {
		opts = append(opts, client.WithHTTPClient(httpClient))
	}

	sdk, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	return newClientFromSDK(sdk), nil
}

func newClientFromSDK(sdk *client.Client) *Client {
	return &Client{
		sdk:        sdk,
		containers: &ContainerServiceAdapter{client: sdk},
		images:     &ImageServiceAdapter{client: sdk},
		networks:   &NetworkServiceAdapter{client: sdk},
		system:     &SystemServiceAdapter{client: sdk},
	}
}

// createHTTPClient builds a transport for unix sockets and plain TCP hosts.
// Log following keeps a response open for the whole test run, so there is
// no overall client timeout.
func createHTTPClient(config *ClientConfig) *http.Client {
	host := config.Host
	if host == "" {
		return nil
	}

	transport := &http.Transport{
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
	}

	switch {
	case strings.HasPrefix(host, "unix://"):
		socketPath := strings.TrimPrefix(host, "unix://")
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: config.DialTimeout}
			return dialer.DialContext(ctx, "unix", socketPath)
		}
	case strings.HasPrefix(host, "tcp://"), strings.HasPrefix(host, "http://"):
		dialer := &net.Dialer{Timeout: config.DialTimeout}
		transport.DialContext = dialer.DialContext
	default:
		return nil
	}

	return &http.Client{Transport: transport}
}

// Containers returns the container service.
func (c *Client) Containers() ports.ContainerService {
	return c.containers
}

// Images returns the image service.
func (c *Client) Images() ports.ImageService {
	return c.images
}

// Networks returns the network service.
func (c *Client) Networks() ports.NetworkService {
	return c.networks
}

// System returns the system service.
func (c *Client) System() ports.SystemService {
	return c.system
}

// Close closes the client.
func (c *Client) Close() error {
	if err := c.sdk.Close(); err != nil {
		return fmt.Errorf("closing docker client: %w", err)
	}
	return nil
}

// DaemonHost returns the address the client talks to.
func (c *Client) DaemonHost() string {
	return c.sdk.DaemonHost()
}
