package domain

// PingResponse is the daemon's answer to a ping.
type PingResponse struct {
	APIVersion string
	OSType     string
}

// Version holds the daemon version information.
type Version struct {
	Version       string
	APIVersion    string
	MinAPIVersion string
	GitCommit     string
	GoVersion     string
	Os            string
	Arch          string
	KernelVersion string
}
