package fetcher

import (
	"fmt"
	"net"
	"net/url"

	"jobradar/internal/usecase/collect"
)

// validateURL checks a posting URL before any HTTP request is made.
// It rejects non-http(s) schemes and, when denyPrivateIPs is set, any
// hostname that resolves to a loopback, private, or link-local address.
// Job feeds carry user-controlled URLs, so every one of them is treated
// as untrusted input.
//
// Blocked ranges (when denyPrivateIPs is true):
//   - 127.0.0.0/8, ::1 (loopback)
//   - 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, fc00::/7 (private)
//   - 169.254.0.0/16, fe80::/10 (link-local)
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: parse error: %v", collect.ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme '%s' not allowed (only http/https)", collect.ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("%w: empty hostname", collect.ErrInvalidURL)
	}

	if !denyPrivateIPs {
		return nil
	}

	// DNSを解決してからチェックする。ホスト名だけでは内部向けか判定できない。
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", collect.ErrInvalidURL, hostname, err)
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: hostname '%s' resolves to private IP %s", collect.ErrPrivateIP, hostname, ip.String())
		}
	}

	return nil
}

// isPrivateIP reports whether the address is loopback, private, or
// link-local. Handles both IPv4 and IPv6.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	if ip.IsLinkLocalUnicast() {
		return true
	}
	return false
}
