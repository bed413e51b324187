package docker

import (
	"errors"
	"fmt"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// ErrInvalidPlatform is returned for platform strings that are not os/arch[/variant].
var ErrInvalidPlatform = errors.New("invalid platform")

// ParsePlatform parses "os/arch[/variant]". An empty string yields nil so the
// daemon picks its native platform.
func ParsePlatform(s string) (*ocispec.Platform, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(strings.ToLower(s), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("%w %q: want os/arch[/variant]", ErrInvalidPlatform, s)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w %q: empty component", ErrInvalidPlatform, s)
		}
	}

	platform := &ocispec.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) == 3 {
		platform.Variant = parts[2]
	}
	return platform, nil
}
