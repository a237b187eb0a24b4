package provisioner_service

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSandboxNotFound the provisioner no longer knows the sandbox
	ErrSandboxNotFound = errors.New("sandbox not found")

	// ErrTunnelMissing a required port has no tunnel
	ErrTunnelMissing = errors.New("tunnel missing")
)

// Sandbox addresses of a freshly provisioned sandbox
type Sandbox struct {
	ID         string // opaque provisioner identifier, used as the app identity
	ControlURL string // control endpoint: artifact push and heartbeat
	UserURL    string // user-facing endpoint
}

// SandboxProvisioner creates and destroys isolated sandboxes
type SandboxProvisioner interface {
	// Provision starts a sandbox from image and waits for both tunnels
	Provision(ctx context.Context, image string) (*Sandbox, error)

	// Destroy terminates the sandbox; ErrSandboxNotFound when it is already gone
	Destroy(ctx context.Context, sandboxID string) error
}

// Tunnel a port forwarded out of a sandbox
type Tunnel struct {
	URL  string
	Host string
	Port int
}

// Address public URL of the tunnel
func (t Tunnel) Address() string {
	if t.URL != "" {
		return t.URL
	}
	if t.Port == 0 || t.Port == 443 {
		return fmt.Sprintf("https://%s", t.Host)
	}
	return fmt.Sprintf("https://%s:%d", t.Host, t.Port)
}
