package listeners

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// blockedHosts are hostnames that should never be reachable from a
// webhook notification, regardless of allow/deny lists.
var blockedHosts = map[string]bool{
	"localhost":                true,
	"127.0.0.1":                true,
	"::1":                      true,
	"0.0.0.0":                  true,
	"metadata":                 true,
	"metadata.google":          true,
	"metadata.google.internal": true,
	"169.254.169.254":          true,
}

var blockedPrefixes = []string{
	"10.", "192.168.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"fd", "fe80:", "::ffff:",
}

var blockedSuffixes = []string{".local", ".internal", ".localhost", ".localdomain", ".corp", ".home", ".lan"}

// validateWebhookURL rejects URLs that target internal networks or cloud
// metadata endpoints (SSRF protection for user-supplied webhook targets).
func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	lowerHost := strings.ToLower(hostname)
	if blockedHosts[lowerHost] {
		return fmt.Errorf("access to %q is not allowed (blocked host)", hostname)
	}
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(lowerHost, prefix) {
			return fmt.Errorf("access to %q is not allowed (private network)", hostname)
		}
	}
	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(lowerHost, suffix) {
			return fmt.Errorf("access to %q is not allowed (internal hostname)", hostname)
		}
	}
	if ip := net.ParseIP(hostname); ip != nil {
		if err := validateIP(ip); err != nil {
			return fmt.Errorf("access to %q is not allowed: %w", hostname, err)
		}
	}
	return nil
}

func validateIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("loopback address")
	case ip.IsPrivate():
		return fmt.Errorf("private address")
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("link-local address")
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address")
	case ip.IsMulticast():
		return fmt.Errorf("multicast address")
	}
	return nil
}

// newSafeTransport builds an http.Transport that re-validates every
// resolved IP at dial time, closing the DNS-rebinding gap a scheme/host
// check alone leaves open (a domain can resolve to a public IP at
// validation time and a private one at connect time).
func newSafeTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address %q: %w", addr, err)
			}
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, fmt.Errorf("DNS lookup failed for %q: %w", host, err)
			}
			for _, ip := range ips {
				if err := validateIP(ip); err != nil {
					return nil, fmt.Errorf("DNS rebinding protection: %q resolved to blocked IP %s: %w", host, ip, err)
				}
			}
			if len(ips) > 0 {
				addr = net.JoinHostPort(ips[0].String(), port)
			}
			return dialer.DialContext(ctx, network, addr)
		},
	}
}
