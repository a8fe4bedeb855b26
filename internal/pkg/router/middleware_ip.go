package router

import (
	"net"
	"net/http"
	"strings"
)

// clientIPHeaders are consulted in order for a proxy-forwarded client address.
var clientIPHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

func middlewareIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rip := realIP(r); rip != "" {
			r.RemoteAddr = rip
		}
		next.ServeHTTP(w, r)
	})
}

func realIP(r *http.Request) string {
	var ip string
	for _, header := range clientIPHeaders {
		if v := r.Header.Get(header); v != "" {
			// X-Forwarded-For may carry a chain; the client is first.
			ip, _, _ = strings.Cut(v, ",")
			ip = strings.TrimSpace(ip)
			break
		}
	}
	if ip != "" && net.ParseIP(ip) != nil {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return ""
}
