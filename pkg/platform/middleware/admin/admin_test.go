package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		expected string
		given    string
		status   int
	}{
		{"matching token passes", "secret", "secret", http.StatusNoContent},
		{"wrong token rejected", "secret", "nope", http.StatusUnauthorized},
		{"missing token rejected", "secret", "", http.StatusUnauthorized},
		{"unconfigured token rejects everything", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/admin/coupons", nil)
			if tt.given != "" {
				r.Header.Set(HeaderAdminToken, tt.given)
			}
			w := httptest.NewRecorder()
			RequireAdminToken(tt.expected, logger)(ok).ServeHTTP(w, r)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
