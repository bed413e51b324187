package cli

import "errors"

// Validation errors
var (
	ErrInvalidLabel       = errors.New("label must be key=value")
	ErrHealthCheckFailed  = errors.New("health check failed")
	ErrImageEmpty         = errors.New("Docker image cannot be empty")
	ErrCommandEmpty       = errors.New("command cannot be empty")
	ErrNetworkEmpty       = errors.New("network cannot be empty")
	ErrUnexpectedArgument = errors.New("unexpected argument")
)
