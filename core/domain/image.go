package domain

// PullOptions represents options for pulling an image.
type PullOptions struct {
	// Reference is the full image reference (e.g., "python:3.12-slim").
	Reference string

	// Platform to pull (e.g., "linux/amd64")
	Platform string

	// RegistryAuth is base64 encoded auth config
	RegistryAuth string

	// OnProgress, when set, receives every progress message of the pull.
	OnProgress func(PullProgress)
}

// PullProgress is one JSON message of an image pull stream.
type PullProgress struct {
	Status         string         `json:"status"`
	ID             string         `json:"id"`
	Progress       string         `json:"progress"`
	ProgressDetail ProgressDetail `json:"progressDetail"`
	Error          string         `json:"error"`
	ErrorDetail    *ErrorDetail   `json:"errorDetail"`
}

// ProgressDetail represents detailed progress information.
type ProgressDetail struct {
	Current int64 `json:"current"`
	Total   int64 `json:"total"`
}

// ErrorDetail is the structured error of a failed pull.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// AuthConfig contains authorization information for connecting to a registry.
type AuthConfig struct {
	Username      string
	Password      string
	Auth          string // Base64 encoded "username:password"
	ServerAddress string
	IdentityToken string
	RegistryToken string
}

// Empty reports whether the config carries no credentials.
func (a AuthConfig) Empty() bool {
	return a.Username == "" && a.Password == "" && a.IdentityToken == "" && a.Auth == "" && a.RegistryToken == ""
}
