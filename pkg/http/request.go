package http

import (
	"net"
	"net/http"
	"strings"
)

// maxUserAgentLen bounds what is stored with audit records
const maxUserAgentLen = 512

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ClientInfo identifies the source of a request for rate limiting and auditing
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ExtractClientInfo returns the client address and a bounded user agent
func ExtractClientInfo(r *http.Request, config *IPConfig) ClientInfo {
	ua := r.Header.Get("User-Agent")
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return ClientInfo{
		IPAddress: ExtractClientIP(r, config),
		UserAgent: ua,
	}
}

// ExtractClientIP returns the client address. Forwarding headers are honoured
// only when the direct peer is a trusted proxy. X-Forwarded-For is read from
// the right, skipping trusted proxies, so entries a client prepends are never
// used as its address.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := remoteAddr(r)

	if config == nil || !isTrustedProxy(remoteIP, config.TrustedProxies) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return forwardedClient(strings.Split(xff, ","), remoteIP, config.TrustedProxies)
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	return remoteIP
}

// forwardedClient returns the right-most hop that is not a trusted proxy.
// An unparsable hop ends the walk at the last address already vouched for.
func forwardedClient(hops []string, peer string, trustedProxies []string) string {
	nearest := peer
	for i := len(hops) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(hops[i])
		if net.ParseIP(ip) == nil {
			return nearest
		}
		if !isTrustedProxy(ip, trustedProxies) {
			return ip
		}
		nearest = ip
	}
	return nearest
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

func isTrustedProxy(ip string, trustedProxies []string) bool {
	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}
