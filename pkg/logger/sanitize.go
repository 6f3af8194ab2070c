package logger

import (
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"unicode"
)

// MaskEmail keeps the first and last character of the local part ("j******e@example.com")
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "[invalid-email]"
	}
	return mask(local) + "@" + domain
}

// MaskUsername keeps the first and last character of a username
func MaskUsername(username string) string {
	return mask(username)
}

func mask(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return s
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}

// RedactedAttr returns "[REDACTED]" in production and the value elsewhere
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

var sensitiveParams = []string{"password", "token", "secret", "api_key", "apikey", "auth"}

// SanitizeQueryString reports whether a raw query should be redacted entirely
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}

// MaskIP drops the host part of an address: the last IPv4 octet or everything
// past the /48 of an IPv6 address. A port, if present, is discarded.
func MaskIP(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return "[invalid-ip]"
	}
	ip = ip.Unmap()
	bits := 48
	if ip.Is4() {
		bits = 24
	}
	prefix, err := ip.Prefix(bits)
	if err != nil {
		return "[invalid-ip]"
	}
	return prefix.Addr().String()
}

const maxUserAgentLen = 256

// SanitizeUserAgent strips control characters and caps the length so a
// client cannot forge log lines through the header.
func SanitizeUserAgent(ua string) string {
	var b strings.Builder
	n := 0
	for _, r := range ua {
		if n == maxUserAgentLen {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
