package docker

import (
	"fmt"

	"github.com/distribution/reference"
	"github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/types"

	"github.com/e-commerce/testrunner/core/domain"
)

// ConfigAuthProvider implements ports.AuthProvider using Docker's config.json.
// Credentials are read on every call so credential helpers with short-lived
// tokens keep working.
type ConfigAuthProvider struct {
	// configDir overrides the default Docker config directory (for testing)
	configDir string
	logger    Logger
}

// Logger interface for auth provider logging
type Logger interface {
	Debugf(format string, args ...any)
	Warningf(format string, args ...any)
}

// NewConfigAuthProvider creates a new auth provider reading ~/.docker.
func NewConfigAuthProvider(logger Logger) *ConfigAuthProvider {
	return &ConfigAuthProvider{logger: logger}
}

// NewConfigAuthProviderWithDir creates an auth provider reading configDir.
func NewConfigAuthProviderWithDir(configDir string, logger Logger) *ConfigAuthProvider {
	return &ConfigAuthProvider{
		configDir: configDir,
		logger:    logger,
	}
}

// GetAuthConfig returns auth configuration for a registry. A missing or
// unreadable config yields empty credentials so public images still pull.
func (p *ConfigAuthProvider) GetAuthConfig(registry string) (domain.AuthConfig, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		p.logWarning("Failed to load Docker config: %v", err)
		return domain.AuthConfig{}, nil
	}

	registry = normalizeRegistry(registry)

	authConfig, err := cfg.GetAuthConfig(registry)
	if err != nil {
		p.logWarning("Failed to get auth for registry %q: %v", registry, err)
		return domain.AuthConfig{}, nil
	}

	if authConfig.Username != "" || authConfig.IdentityToken != "" {
		p.logDebug("Found credentials for registry %q", registry)
	}

	return convertAuthConfig(authConfig), nil
}

// GetEncodedAuth returns base64-encoded auth for a registry, or "" when there
// are no credentials.
func (p *ConfigAuthProvider) GetEncodedAuth(registry string) (string, error) {
	auth, err := p.GetAuthConfig(registry)
	if err != nil {
		return "", err
	}

	if auth.Empty() {
		return "", nil
	}

	return EncodeAuthConfig(auth)
}

func (p *ConfigAuthProvider) loadConfig() (*configfile.ConfigFile, error) {
	dir := p.configDir
	if dir == "" {
		dir = config.Dir()
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading docker config: %w", err)
	}
	return cfg, nil
}

func (p *ConfigAuthProvider) logDebug(format string, args ...any) {
	if p.logger != nil {
		p.logger.Debugf(format, args...)
	}
}

func (p *ConfigAuthProvider) logWarning(format string, args ...any) {
	if p.logger != nil {
		p.logger.Warningf(format, args...)
	}
}

// normalizeRegistry maps Docker Hub aliases to the key config.json uses.
func normalizeRegistry(registry string) string {
	if registry == "" || registry == "docker.io" || registry == "index.docker.io" {
		return "https://index.docker.io/v1/"
	}
	return registry
}

func convertAuthConfig(src types.AuthConfig) domain.AuthConfig {
	return domain.AuthConfig{
		Username:      src.Username,
		Password:      src.Password,
		Auth:          src.Auth,
		ServerAddress: src.ServerAddress,
		IdentityToken: src.IdentityToken,
		RegistryToken: src.RegistryToken,
	}
}

// ExtractRegistry extracts the registry hostname from an image reference.
func ExtractRegistry(image string) string {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "docker.io"
	}
	return reference.Domain(named)
}

// NormalizeImage returns the fully qualified reference of image, adding the
// docker.io/library prefix and the latest tag when they are omitted.
func NormalizeImage(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", fmt.Errorf("parsing image reference %q: %w", image, err)
	}
	return reference.TagNameOnly(named).String(), nil
}

// ValidImageReference reports whether image parses as a Docker reference.
func ValidImageReference(image string) bool {
	_, err := reference.ParseNormalizedNamed(image)
	return err == nil
}
