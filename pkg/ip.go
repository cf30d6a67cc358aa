package pkg

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

var (
	localDockerIpRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1$`)
)

// IPIsLocal reports whether ip is the loopback or the docker bridge gateway, i.e. a
// request made during local development.
func IPIsLocal(ip string) bool {
	if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
		return true
	}
	return localDockerIpRegex.MatchString(ip)
}

// ClientIP returns the address the request originates from, preferring the proxy
// headers set by the reverse proxy in front of the service.
func ClientIP(r *http.Request) string {
	addr := r.Header.Get("X-Real-Ip")
	if addr == "" {
		// first entry is the original client
		addr, _, _ = strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = r.RemoteAddr
	}

	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return addr
}
