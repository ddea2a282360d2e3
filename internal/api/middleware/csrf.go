// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginCheck rejects writes (approve, verify-otp, submit, ...) that a
// browser sent from a foreign site. The Origin header is consulted first,
// then Referer. Requests carrying neither come from non-browser clients and
// pass. An opaque "null" origin never matches.
func OriginCheck(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if n, ok := normalizeOrigin(o); ok {
			allowed[n] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			raw := r.Header.Get("Origin")
			if raw == "" {
				raw = r.Header.Get("Referer")
			}
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			origin, ok := normalizeOrigin(raw)
			if ok {
				if _, listed := allowed[origin]; listed || origin == requestOrigin(r) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden", "Cross-origin request not allowed")
		})
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// normalizeOrigin reduces an Origin or Referer value to scheme://host[:port],
// lowercased, with default ports dropped.
func normalizeOrigin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, true
}

// requestOrigin is the origin the request was addressed to, honouring a
// TLS-terminating proxy.
func requestOrigin(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	n, _ := normalizeOrigin(scheme + "://" + r.Host)
	return n
}
