package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strings"
)

// IPExtractor extracts the client IP address from an HTTP request.
// Implementations choose between secure RemoteAddr extraction (default)
// and header-based extraction behind a trusted reverse proxy (opt-in).
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor extracts the client IP from the TCP connection
// address. The connection IP cannot be spoofed by the client, so this
// is the safe choice when the service is directly reachable.
type RemoteAddrExtractor struct{}

// ExtractIP strips the port from r.RemoteAddr. Handles IPv4 and IPv6.
func (e *RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return extractIPFromAddr(r.RemoteAddr)
}

// TrustedProxyConfig controls whether forwarded headers are honoured
// and from which proxy addresses.
type TrustedProxyConfig struct {
	Enabled bool
	// AllowedCIDRs lists trusted proxy ranges. Single IPs are stored
	// as /32 or /128 prefixes.
	AllowedCIDRs []netip.Prefix
}

// IsTrusted reports whether remoteAddr belongs to a trusted proxy.
func (c *TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	ip, err := extractIPFromAddr(remoteAddr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range c.AllowedCIDRs {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// LoadTrustedProxyConfig loads proxy trust settings from the
// environment.
//
// Environment variables:
//   - TRUST_PROXY: "true" enables forwarded-header extraction
//   - TRUSTED_PROXIES: comma-separated IPs or CIDR ranges
//
// Fail-closed: enabling trust without a valid proxy list is a startup
// error, since it would otherwise let any client spoof its IP.
func LoadTrustedProxyConfig() (*TrustedProxyConfig, error) {
	enabled := os.Getenv("TRUST_PROXY") == "true"

	config := &TrustedProxyConfig{
		Enabled:      enabled,
		AllowedCIDRs: []netip.Prefix{},
	}
	if !enabled {
		return config, nil
	}

	proxiesStr := strings.TrimSpace(os.Getenv("TRUSTED_PROXIES"))
	if proxiesStr == "" {
		return nil, fmt.Errorf("TRUST_PROXY is enabled but TRUSTED_PROXIES is empty")
	}

	for _, proxyStr := range strings.Split(proxiesStr, ",") {
		proxyStr = strings.TrimSpace(proxyStr)
		if proxyStr == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(proxyStr)
		if err != nil {
			ip, ipErr := netip.ParseAddr(proxyStr)
			if ipErr != nil {
				return nil, fmt.Errorf("invalid IP or CIDR %q in TRUSTED_PROXIES", proxyStr)
			}
			if ip.Is4() {
				prefix = netip.PrefixFrom(ip, 32)
			} else {
				prefix = netip.PrefixFrom(ip, 128)
			}
		}
		config.AllowedCIDRs = append(config.AllowedCIDRs, prefix)
	}

	if len(config.AllowedCIDRs) == 0 {
		return nil, fmt.Errorf("TRUST_PROXY is enabled but no valid proxies found in TRUSTED_PROXIES")
	}
	return config, nil
}

// TrustedProxyExtractor extracts the client IP from X-Forwarded-For or
// X-Real-IP when the request arrives from a trusted proxy. Untrusted
// sources fall back to RemoteAddr, which prevents rate-limit bypass by
// spoofing forwarded headers.
type TrustedProxyExtractor struct {
	config TrustedProxyConfig
}

// NewTrustedProxyExtractor creates an extractor with the given trust
// configuration.
func NewTrustedProxyExtractor(config TrustedProxyConfig) *TrustedProxyExtractor {
	return &TrustedProxyExtractor{config: config}
}

// ExtractIP resolves the client IP. Priority for trusted proxies is
// X-Forwarded-For (first entry), then X-Real-IP, then RemoteAddr.
func (e *TrustedProxyExtractor) ExtractIP(r *http.Request) (string, error) {
	if !e.config.Enabled {
		return extractIPFromAddr(r.RemoteAddr)
	}

	if !e.config.IsTrusted(r.RemoteAddr) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			slog.Warn("untrusted source attempting to set X-Forwarded-For",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_forwarded_for", xff))
		}
		return extractIPFromAddr(r.RemoteAddr)
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip, nil
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String(), nil
		}
	}
	return extractIPFromAddr(r.RemoteAddr)
}

// extractIPFromAddr extracts the IP from "host:port" or a bare IP.
func extractIPFromAddr(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if ip := net.ParseIP(addr); ip != nil {
			return ip.String(), nil
		}
		return "", fmt.Errorf("invalid address format: %s", addr)
	}
	return host, nil
}

// parseFirstIP returns the first valid IP from a comma-separated list,
// the X-Forwarded-For format "client, proxy1, proxy2".
func parseFirstIP(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	if ip := net.ParseIP(strings.TrimSpace(s)); ip != nil {
		return ip.String()
	}
	return ""
}
