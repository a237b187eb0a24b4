package provisioner_service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sandbox-app-service/conf"
	"sandbox-app-service/logging"

	"github.com/imroc/req"
	"github.com/tidwall/gjson"
)

// startupCommand entrypoint that starts the control server and the user app
var startupCommand = []string{"/bin/bash", "/root/startup.sh"}

// HTTPProvisioner SandboxProvisioner speaking to a REST sandbox API:
//
//	POST   {base}/sandboxes      {image, command, encrypted_ports, timeout}
//	  ->   {sandbox_id, tunnels: {"<port>": {url | host, port}}}
//	DELETE {base}/sandboxes/{id}
type HTTPProvisioner struct {
	baseURL        string
	apiKey         string
	timeout        time.Duration
	controlPort    int
	userPort       int
	sandboxTimeout int
}

// NewHTTPProvisioner create provisioner from configuration
func NewHTTPProvisioner(cfg conf.ProvisionerConfig) *HTTPProvisioner {
	return &HTTPProvisioner{
		baseURL:        strings.TrimRight(cfg.BaseUrl, "/"),
		apiKey:         cfg.ApiKey,
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		controlPort:    cfg.ControlPort,
		userPort:       cfg.UserPort,
		sandboxTimeout: cfg.SandboxTimeoutSeconds,
	}
}

func (p *HTTPProvisioner) headers() req.Header {
	h := req.Header{"Content-Type": "application/json"}
	if p.apiKey != "" {
		h["Authorization"] = "Bearer " + p.apiKey
	}
	return h
}

func (p *HTTPProvisioner) Provision(ctx context.Context, image string) (*Sandbox, error) {
	body := map[string]interface{}{
		"image":           image,
		"command":         startupCommand,
		"encrypted_ports": []int{p.controlPort, p.userPort},
		"timeout":         p.sandboxTimeout,
	}

	r := req.New()
	resp, err := r.Post(p.baseURL+"/sandboxes", ctx, &http.Client{Timeout: p.timeout}, p.headers(), req.BodyJSON(body))
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}

	code := resp.Response().StatusCode
	if code < 200 || code > 299 {
		return nil, fmt.Errorf("create sandbox: HTTP %d: %s", code, resp.String())
	}

	result := gjson.ParseBytes(resp.Bytes())
	id := result.Get("sandbox_id").String()
	if id == "" {
		return nil, fmt.Errorf("create sandbox: response has no sandbox_id")
	}

	control, err := tunnelFor(result, p.controlPort)
	if err != nil {
		return nil, fmt.Errorf("sandbox %s: %w", id, err)
	}
	user, err := tunnelFor(result, p.userPort)
	if err != nil {
		return nil, fmt.Errorf("sandbox %s: %w", id, err)
	}

	logging.Info("sandbox provisioned", "sandbox_id", id, "control_url", control.Address(), "user_url", user.Address())
	return &Sandbox{
		ID:         id,
		ControlURL: control.Address(),
		UserURL:    user.Address(),
	}, nil
}

func (p *HTTPProvisioner) Destroy(ctx context.Context, sandboxID string) error {
	r := req.New()
	resp, err := r.Delete(p.baseURL+"/sandboxes/"+sandboxID, ctx, &http.Client{Timeout: p.timeout}, p.headers())
	if err != nil {
		return fmt.Errorf("destroy sandbox %s: %w", sandboxID, err)
	}

	switch code := resp.Response().StatusCode; {
	case code == http.StatusNotFound:
		return fmt.Errorf("destroy sandbox %s: %w", sandboxID, ErrSandboxNotFound)
	case code < 200 || code > 299:
		return fmt.Errorf("destroy sandbox %s: HTTP %d: %s", sandboxID, code, resp.String())
	}
	return nil
}

func tunnelFor(result gjson.Result, port int) (Tunnel, error) {
	t := result.Get("tunnels." + strconv.Itoa(port))
	if !t.Exists() {
		return Tunnel{}, fmt.Errorf("%w: port %d", ErrTunnelMissing, port)
	}
	tunnel := Tunnel{
		URL:  t.Get("url").String(),
		Host: t.Get("host").String(),
		Port: int(t.Get("port").Int()),
	}
	if tunnel.URL == "" && tunnel.Host == "" {
		return Tunnel{}, fmt.Errorf("%w: port %d has no address", ErrTunnelMissing, port)
	}
	return tunnel, nil
}
