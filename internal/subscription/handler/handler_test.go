package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/subscription/service"
	"kycgate/internal/subscription/store"
	"kycgate/pkg/testutil"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	svc, err := service.New(store.NewInMemoryStore())
	require.NoError(t, err)

	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r
}

func do(t *testing.T, r chi.Router, method, path string, body any, userID string) *SubscriptionResponse {
	t.Helper()
	req := testutil.WithRequestTime(testutil.NewJSONRequest(t, method, path, body), now)
	if userID != "" {
		req = testutil.WithUserID(req, userID)
	}
	rr := testutil.DoRequest(r, req)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[SubscriptionResponse](t, rr)
}

func TestSubscriptionLifecycle(t *testing.T) {
	r := newRouter(t)
	userID := uuid.NewString()
	expiry := now.Add(24 * time.Hour)

	testutil.Given(t, "an admin grants an expiring subscription", func(t *testing.T) {
		granted := do(t, r, http.MethodPost, "/admin/users/"+userID+"/subscriptions",
			map[string]any{"category": "Identity Plan", "expires_at": expiry}, "")
		assert.True(t, granted.Active)
		assert.False(t, granted.NeverExpires)

		testutil.When(t, "the user lists their subscriptions", func(t *testing.T) {
			req := testutil.WithUserID(testutil.NewJSONRequest(t, http.MethodGet, "/me/subscriptions", nil), userID)
			rr := testutil.DoRequest(r, testutil.WithRequestTime(req, now))
			require.Equal(t, http.StatusOK, rr.Code)

			testutil.Then(t, "the grant is listed as active", func(t *testing.T) {
				list := testutil.UnmarshalResponse[SubscriptionListResponse](t, rr)
				require.Len(t, list.Subscriptions, 1)
				assert.Equal(t, granted.ID, list.Subscriptions[0].ID)
				assert.True(t, list.Subscriptions[0].Active)
			})
		})

		testutil.When(t, "the admin extends it", func(t *testing.T) {
			extended := do(t, r, http.MethodPatch, "/admin/subscriptions/"+granted.ID,
				map[string]any{"expires_at": expiry.Add(24 * time.Hour)}, "")

			testutil.Then(t, "the new expiry is returned", func(t *testing.T) {
				require.NotNil(t, extended.ExpiresAt)
				assert.True(t, extended.ExpiresAt.Equal(expiry.Add(24*time.Hour)))
			})
		})

		testutil.When(t, "the admin revokes it", func(t *testing.T) {
			revoked := do(t, r, http.MethodDelete, "/admin/subscriptions/"+granted.ID, nil, "")

			testutil.Then(t, "it is no longer active", func(t *testing.T) {
				assert.False(t, revoked.Active)
				assert.NotNil(t, revoked.RevokedAt)
			})
		})
	})
}

func TestSubscriptionHandlerErrors(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unauthenticated list", http.MethodGet, "/me/subscriptions", nil, http.StatusUnauthorized, "unauthorized"},
		{"invalid user id", http.MethodPost, "/admin/users/not-a-uuid/subscriptions", map[string]any{"category": "bvn"}, http.StatusBadRequest, "invalid_input"},
		{"missing category", http.MethodPost, "/admin/users/" + uuid.NewString() + "/subscriptions", map[string]any{}, http.StatusBadRequest, "validation_error"},
		{"past expiry", http.MethodPost, "/admin/users/" + uuid.NewString() + "/subscriptions", map[string]any{"category": "bvn", "expires_at": now.Add(-time.Hour)}, http.StatusBadRequest, "validation_error"},
		{"extend without expiry", http.MethodPatch, "/admin/subscriptions/" + uuid.NewString(), map[string]any{}, http.StatusBadRequest, "validation_error"},
		{"extend unknown", http.MethodPatch, "/admin/subscriptions/" + uuid.NewString(), map[string]any{"expires_at": now.Add(time.Hour)}, http.StatusNotFound, "not_found"},
		{"revoke unknown", http.MethodDelete, "/admin/subscriptions/" + uuid.NewString(), nil, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithRequestTime(testutil.NewJSONRequest(t, tt.method, tt.path, tt.body), now)
			rr := testutil.DoRequest(r, req)
			testutil.AssertStatusAndError(t, rr, tt.wantStatus, tt.wantCode)
		})
	}
}
