// Package models holds the sliding window rate limit types shared by the
// bucket stores and the HTTP middleware.
package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share one quota.
type EndpointClass string

const (
	// ClassVerification covers execution of paid provider checks.
	ClassVerification EndpointClass = "verification"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Enabled reports whether the limit admits a positive budget.
func (l Limit) Enabled() bool {
	return l.RequestsPerWindow > 0 && l.Window > 0
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in whole seconds and only set on denial.
	RetryAfter int
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// NewUserKey builds the bucket key for a user under an endpoint class.
func NewUserKey(class EndpointClass, userID string) string {
	return "ratelimit:" + SanitizeKeySegment(string(class)) + ":user:" + SanitizeKeySegment(userID)
}

// SanitizeKeySegment escapes the key delimiter so a crafted identifier cannot
// address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error            string    `json:"error"`
	ErrorDescription string    `json:"error_description"`
	Limit            int       `json:"quota_limit"`
	Remaining        int       `json:"quota_remaining"`
	ResetAt          time.Time `json:"quota_reset"`
	RetryAfter       int       `json:"retry_after"`
}
