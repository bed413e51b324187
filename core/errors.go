package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/e-commerce/testrunner/core/domain"
)

// Common errors used across the package
var (
	// Container errors
	ErrContainerCreateFailed = errors.New("failed to create container")
	ErrContainerStartFailed  = errors.New("failed to start container")
	ErrContainerStopFailed   = errors.New("failed to stop container")
	ErrContainerRemoveFailed = errors.New("failed to remove container")
	ErrContainerKillFailed   = errors.New("failed to kill container")

	// Image errors
	ErrImagePullFailed    = errors.New("failed to pull image")
	ErrLocalImageNotFound = errors.New("local image not found")

	// Network errors
	ErrNetworkNotFound = errors.New("network not found")

	// Run errors
	ErrMaxTimeRunning = errors.New("max runtime exceeded")
	ErrUnexpected     = errors.New("unexpected error")

	// Validation errors
	ErrEmptyCommand      = errors.New("command cannot be empty")
	ErrInvalidPullPolicy = errors.New("invalid pull policy")

	// Docker SDK errors
	ErrResponseChannelClosed = errors.New("response channel closed unexpectedly")
)

// Exit codes used when the container command itself did not produce one.
const (
	// ExitCodeInvalidConfig is returned by validate for a config that fails to load.
	ExitCodeInvalidConfig = 1
	// ExitCodeRuntimeError follows `docker run`: the daemon or the tool failed.
	ExitCodeRuntimeError = 125
	// ExitCodeInterrupted is the shell convention for SIGINT.
	ExitCodeInterrupted = 130
)

// WrapContainerError wraps a container-related error with context
func WrapContainerError(op string, containerID string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s container %q: %w", op, containerID, err)
}

// WrapImageError wraps an image-related error with context
func WrapImageError(op string, image string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s image %q: %w", op, image, err)
}

// WrapNetworkError wraps a network-related error with context
func WrapNetworkError(op string, network string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s network %q: %w", op, network, err)
}

// IsRetryableError checks if an error should trigger a retry of an image pull.
// Missing images, bad credentials and cancellation are final.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		domain.IsCanceled(err) || domain.IsNotFound(err) ||
		errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrForbidden) {
		return false
	}

	return errors.Is(err, domain.ErrConnectionFailed) ||
		domain.IsTimeout(err) ||
		containsNetworkError(err)
}

// containsNetworkError checks if the error is network-related
func containsNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"no such host",
		"network unreachable",
		"tls handshake",
		"unexpected eof",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// NonZeroExitError represents a container exit with non-zero code
type NonZeroExitError struct {
	ExitCode int
}

func (e NonZeroExitError) Error() string {
	return fmt.Sprintf("non-zero exit code: %d", e.ExitCode)
}

// IsNonZeroExitError checks if the error is a non-zero exit code error
func IsNonZeroExitError(err error) bool {
	_, ok := errors.AsType[NonZeroExitError](err)
	return ok
}

// ExitError attaches a fixed process exit status to err.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	return e.Err.Error()
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps the result of a test run to the process exit status.
// The container's own status passes through unchanged.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if exitErr, ok := errors.AsType[NonZeroExitError](err); ok {
		return exitErr.ExitCode
	}

	if exitErr, ok := errors.AsType[ExitError](err); ok {
		return exitErr.Code
	}

	if errors.Is(err, context.Canceled) || domain.IsCanceled(err) {
		return ExitCodeInterrupted
	}

	return ExitCodeRuntimeError
}
