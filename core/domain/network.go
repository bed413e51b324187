package domain

import "time"

// Network represents a Docker network.
type Network struct {
	Name       string
	ID         string
	Created    time.Time
	Scope      string // local, global, swarm
	Driver     string
	Internal   bool
	Attachable bool
	Labels     map[string]string
}

// ComposeProjectLabel is set by docker compose on the resources it creates.
const ComposeProjectLabel = "com.docker.compose.project"

// ComposeProject returns the compose project that created the network, if any.
func (n Network) ComposeProject() string {
	return n.Labels[ComposeProjectLabel]
}

// NetworkListOptions represents options for listing networks.
type NetworkListOptions struct {
	Filters map[string][]string
}

// IsBuiltinNetworkMode reports whether mode names a network every daemon has
// or a container namespace, i.e. something that cannot be looked up by name.
func IsBuiltinNetworkMode(mode string) bool {
	switch mode {
	case "", "default", "bridge", "host", "none":
		return true
	}
	return len(mode) > len("container:") && mode[:len("container:")] == "container:"
}
