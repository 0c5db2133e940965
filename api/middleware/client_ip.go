package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

const ctxClientIP contextKey = "client_ip"

// ClientAddress resolves the caller's address once per request. X-Forwarded-For
// is only consulted when trustedHops proxies sit in front of the service; the
// address is then read trustedHops entries from the right, which is the one the
// outermost trusted proxy appended. Anything a client sends to the left of it
// is ignored.
func ClientAddress(trustedHops int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trustedHops)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxClientIP, ip)))
		})
	}
}

// ClientIP returns the address resolved by ClientAddress, or the socket peer
// when that middleware did not run.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ctxClientIP).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func resolveClientIP(r *http.Request, trustedHops int) string {
	if trustedHops <= 0 {
		return remoteHost(r)
	}
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				hops = append(hops, ip)
			}
		}
	}
	if len(hops) < trustedHops {
		return remoteHost(r)
	}
	candidate := hops[len(hops)-trustedHops]
	if net.ParseIP(candidate) == nil {
		return remoteHost(r)
	}
	return candidate
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
