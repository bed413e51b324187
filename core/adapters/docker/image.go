package docker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"

	"github.com/e-commerce/testrunner/core/domain"
)

// ErrPullFailed wraps errors the daemon reports inside a pull stream.
var ErrPullFailed = errors.New("image pull failed")

// ImageServiceAdapter implements ports.ImageService using Docker SDK.
type ImageServiceAdapter struct {
	client *client.Client
}

// pull starts an image pull. The stream carries JSON-encoded PullProgress
// messages and must be closed by the caller.
func (s *ImageServiceAdapter) pull(ctx context.Context, opts domain.PullOptions) (io.ReadCloser, error) {
	reader, err := s.client.ImagePull(ctx, opts.Reference, image.PullOptions{
		RegistryAuth: opts.RegistryAuth,
		Platform:     opts.Platform,
	})
	if err != nil {
		return nil, convertError(err)
	}

	return reader, nil
}

// PullAndWait pulls an image and waits for completion.
func (s *ImageServiceAdapter) PullAndWait(ctx context.Context, opts domain.PullOptions) error {
	reader, err := s.pull(ctx, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	return DrainPullStream(reader, opts.OnProgress)
}

// DrainPullStream consumes a pull progress stream and returns the first error
// message the daemon embedded in it. A failed pull still answers 200 OK, so
// the stream is the only place the failure shows up. onProgress may be nil.
func DrainPullStream(r io.Reader, onProgress func(domain.PullProgress)) error {
	dec := json.NewDecoder(r)
	for {
		var msg domain.PullProgress
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading image pull response: %w", err)
		}
		if msg.ErrorDetail != nil && msg.ErrorDetail.Message != "" {
			return fmt.Errorf("%w: %s", ErrPullFailed, msg.ErrorDetail.Message)
		}
		if msg.Error != "" {
			return fmt.Errorf("%w: %s", ErrPullFailed, msg.Error)
		}
		if onProgress != nil {
			onProgress(msg)
		}
	}
}

// Exists checks if an image exists locally.
func (s *ImageServiceAdapter) Exists(ctx context.Context, imageRef string) (bool, error) {
	_, err := s.client.ImageInspect(ctx, imageRef)
	if err != nil {
		converted := convertError(err)
		if domain.IsNotFound(converted) {
			return false, nil
		}
		return false, converted
	}
	return true, nil
}

// EncodeAuthConfig encodes an auth config for use in API calls.
func EncodeAuthConfig(auth domain.AuthConfig) (string, error) {
	authConfig := registry.AuthConfig{
		Username:      auth.Username,
		Password:      auth.Password,
		Auth:          auth.Auth,
		ServerAddress: auth.ServerAddress,
		IdentityToken: auth.IdentityToken,
		RegistryToken: auth.RegistryToken,
	}

	encoded, err := json.Marshal(authConfig)
	if err != nil {
		return "", fmt.Errorf("encoding auth config: %w", err)
	}

	return base64.URLEncoding.EncodeToString(encoded), nil
}
