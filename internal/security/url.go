// Package security provides request validators for agentlab.
//
// The URL validator prevents SSRF (Server-Side Request Forgery) attacks by
// blocking requests to private networks, cloud metadata endpoints, and other
// dangerous targets before any tool or pipeline dials out.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// URL validates URLs to prevent SSRF attacks.
//
// Blocked targets:
//   - Private IP ranges (RFC 1918): 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
//   - Loopback: 127.0.0.0/8, ::1
//   - Link-local: 169.254.0.0/16, fe80::/10
//   - Cloud metadata: 169.254.169.254
//   - Known dangerous hostnames: localhost, metadata.google.internal
//
// Usage:
//
//	validator := security.NewURL()
//	if err := validator.Validate("http://example.com"); err != nil {
//	    // URL is not safe
//	}
//
//	// Or use Client() for automatic DNS resolution checking:
//	client := validator.Client()
type URL struct {
	// allowedSchemes defines permitted URL schemes
	allowedSchemes map[string]struct{}

	// blockedHosts defines hostnames that are always blocked
	blockedHosts map[string]struct{}

	// maxResponseSize bounds response bodies read through Client()
	maxResponseSize int64

	// timeout bounds requests issued through Client()
	timeout time.Duration
}

// Option configures a URL validator.
type Option func(*URL)

// WithTimeout overrides the default 30s client timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *URL) { v.timeout = d }
}

// WithMaxResponseSize overrides the default 5MB response body limit.
func WithMaxResponseSize(n int64) Option {
	return func(v *URL) { v.maxResponseSize = n }
}

// NewURL creates a new URL validator with default security settings.
func NewURL(opts ...Option) *URL {
	v := &URL{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
		maxResponseSize: 5 * 1024 * 1024, // 5MB
		timeout:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks if a URL is safe to fetch.
// Returns an error if the URL targets a private network or blocked host.
//
// This performs static validation only. For complete SSRF protection during
// DNS resolution, use Client(), which validates resolved addresses at dial time.
func (v *URL) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}

	return v.validateHost(host)
}

// validateHost checks if a hostname is safe.
func (v *URL) validateHost(host string) error {
	hostLower := strings.ToLower(host)

	if _, blocked := v.blockedHosts[hostLower]; blocked {
		return fmt.Errorf("blocked host: %s", host)
	}

	// IP literals are checked immediately; hostnames are re-checked at dial
	// time after DNS resolution.
	if ip := net.ParseIP(host); ip != nil {
		return v.checkIP(ip)
	}

	return nil
}

// checkIP validates that an IP address is not in a blocked range.
func (v *URL) checkIP(ip net.IP) error {
	// Normalize IPv6-mapped IPv4 addresses (::ffff:127.0.0.1 -> 127.0.0.1)
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	if ip.IsLoopback() {
		return fmt.Errorf("loopback address not allowed: %s", ip)
	}

	if ip.IsPrivate() {
		return fmt.Errorf("private IP not allowed: %s", ip)
	}

	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local address not allowed: %s", ip)
	}

	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}

	// Technically link-local, but check explicitly for clarity.
	if ip.String() == "169.254.169.254" {
		return fmt.Errorf("cloud metadata endpoint blocked: %s", ip)
	}

	return nil
}

// MaxResponseSize returns the maximum allowed response body size in bytes.
func (v *URL) MaxResponseSize() int64 {
	return v.maxResponseSize
}

// Client returns an http.Client that validates IP addresses during DNS
// resolution (prevents SSRF via DNS rebinding) and re-validates every
// redirect target.
func (v *URL) Client() *http.Client {
	return &http.Client{
		Timeout: v.timeout,
		Transport: &http.Transport{
			DialContext:         v.safeDialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: v.validateRedirect,
	}
}

// safeDialContext validates resolved IPs before connecting.
func (v *URL) safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// addr might not have a port (shouldn't happen with http.Transport)
		host = addr
		port = ""
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF blocked: %w", err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ip := range ips {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF blocked (resolved %s -> %s): %w", host, ip, err)
		}
	}

	// Dial the first resolved IP to avoid TOCTOU between check and connect.
	if len(ips) > 0 {
		targetAddr := ips[0].String()
		if port != "" {
			targetAddr = net.JoinHostPort(targetAddr, port)
		}
		return (&net.Dialer{}).DialContext(ctx, network, targetAddr)
	}

	return nil, fmt.Errorf("no IP addresses resolved for %s", host)
}

// validateRedirect checks if a redirect URL is safe and bounds chain length.
func (v *URL) validateRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	return v.Validate(req.URL.String())
}
