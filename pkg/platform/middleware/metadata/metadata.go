// Package metadata records the caller's IP and a device summary on the request
// context. Verification history stores the summary, never the raw User-Agent.
package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"kycgate/pkg/requestcontext"
)

// UnknownDevice is reported for an empty User-Agent.
const UnknownDevice = "Unknown Device"

// ClientMetadata should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		device := DeviceSummary(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceSummary renders a User-Agent as "<browser> on <os>".
func DeviceSummary(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return UnknownDevice
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := strings.TrimSpace(ua.OSInfo().Name)
	if os == "" {
		os = strings.TrimSpace(ua.Platform())
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

// ClientIPFromRequest prefers proxy headers and falls back to RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first hop is the original client
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
