package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/e-commerce/testrunner/core/domain"
)

// ImageService is a mock implementation of ports.ImageService.
type ImageService struct {
	mu sync.RWMutex

	// Callbacks for customizing behavior
	OnPullAndWait func(ctx context.Context, opts domain.PullOptions) error
	OnExists      func(ctx context.Context, imageRef string) (bool, error)

	// Call tracking
	PullAndWaitCalls []domain.PullOptions
	ExistsCalls      []string

	// Simulated data
	ExistsResult bool
}

// NewImageService creates a new mock ImageService.
func NewImageService() *ImageService {
	return &ImageService{
		ExistsResult: true, // Default: images exist
	}
}

// pullProgress is the stream a successful pull reports.
const pullProgress = `{"status":"Pulling from library/python"}
{"status":"Digest: sha256:mock"}
{"status":"Status: Downloaded newer image for python:3.12-slim"}
`

// PullAndWait pulls an image and waits for completion.
func (s *ImageService) PullAndWait(ctx context.Context, opts domain.PullOptions) error {
	s.mu.Lock()
	s.PullAndWaitCalls = append(s.PullAndWaitCalls, opts)
	s.mu.Unlock()

	if s.OnPullAndWait != nil {
		return s.OnPullAndWait(ctx, opts)
	}

	dec := json.NewDecoder(strings.NewReader(pullProgress))
	for {
		var msg domain.PullProgress
		if err := dec.Decode(&msg); err != nil {
			break
		}
		if opts.OnProgress != nil {
			opts.OnProgress(msg)
		}
	}

	s.SetExistsResult(true)
	return nil
}

// Exists checks if an image exists.
func (s *ImageService) Exists(ctx context.Context, imageRef string) (bool, error) {
	s.mu.Lock()
	s.ExistsCalls = append(s.ExistsCalls, imageRef)
	result := s.ExistsResult
	s.mu.Unlock()

	if s.OnExists != nil {
		return s.OnExists(ctx, imageRef)
	}
	return result, nil
}

// SetExistsResult sets the result returned by Exists().
func (s *ImageService) SetExistsResult(exists bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExistsResult = exists
}

// PullCount returns how many pulls were requested.
func (s *ImageService) PullCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.PullAndWaitCalls)
}
