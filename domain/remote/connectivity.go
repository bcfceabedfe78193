package remote

import (
	"context"
	"net"
	"net/url"
	"time"
)

// Connectivity reports whether the network is usable before a scan starts.
type Connectivity interface {
	Available(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) Available(ctx context.Context) bool { return f(ctx) }

// AlwaysOnline skips probing.
var AlwaysOnline = ConnectivityFunc(func(context.Context) bool { return true })

// DialProbe considers the network available when a TCP connection to any of
// Targets (host:port) opens within Timeout.
type DialProbe struct {
	Targets []string
	Timeout time.Duration
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewDialProbe derives probe targets from service URLs.
func NewDialProbe(serviceURLs []string, timeout time.Duration) *DialProbe {
	seen := map[string]bool{}
	var targets []string
	for _, raw := range serviceURLs {
		addr, ok := hostPort(raw)
		if !ok || seen[addr] {
			continue
		}
		seen[addr] = true
		targets = append(targets, addr)
	}
	return &DialProbe{Targets: targets, Timeout: timeout}
}

func hostPort(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), true
}

// Available dials the targets in order. With no targets it reports true and
// leaves failure detection to the calls themselves.
func (p *DialProbe) Available(ctx context.Context) bool {
	if len(p.Targets) == 0 {
		return true
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	dial := p.dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	for _, addr := range p.Targets {
		dctx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := dial(dctx, "tcp", addr)
		cancel()
		if err == nil {
			_ = conn.Close()
			return true
		}
	}
	return false
}
