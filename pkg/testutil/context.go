package testutil

import (
	"net/http"
	"time"

	id "kycgate/pkg/domain"
	"kycgate/pkg/requestcontext"
)

// WithUserID authenticates a request the way the auth middleware would.
// Invalid IDs leave the request unauthenticated.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithDevice sets caller metadata normally filled by the metadata middleware.
func WithDevice(req *http.Request, clientIP, device string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, device))
}
