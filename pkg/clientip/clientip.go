package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Config controls whether proxy headers are believed.
type Config struct {
	// TrustProxyHeaders must only be enabled behind a proxy that overwrites
	// these headers; otherwise clients can pick their own address.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

// proxyHeaders in priority order. X-Forwarded-For is a list; its first
// valid entry is the client.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP resolves the client address from proxy headers, falling back to
// the TCP peer. It returns "" when nothing parses.
func GetIP(r *http.Request) string {
	for _, name := range proxyHeaders {
		v := r.Header.Get(name)
		if v == "" {
			continue
		}
		for part := range strings.SplitSeq(v, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}
	return RemoteIP(r)
}

// RemoteIP returns the TCP peer address only.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP normalises an address; zones and IPv4-mapped forms are unwrapped.
func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.WithZone("").Unmap().String()
}
