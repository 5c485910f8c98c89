package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tasktrack-api/internal/api/middleware"
	"github.com/mwhitlock/tasktrack-api/internal/service/auth"
)

// stubJWTService validates exactly one token string.
type stubJWTService struct {
	validToken string
	userID     uuid.UUID
	err        error
}

func (s *stubJWTService) GenerateToken(_ context.Context, userID uuid.UUID) (string, error) {
	return s.validToken, nil
}

func (s *stubJWTService) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.validToken {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: s.userID}, nil
}

func protectedEndpoint(t *testing.T, jwt auth.JWTService) (http.Handler, *uuid.UUID) {
	t.Helper()

	var seenUserID uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetUserID(r)
		require.True(t, ok)
		seenUserID = id
		w.WriteHeader(http.StatusOK)
	})

	return middleware.NewAuthMiddleware(jwt).Authenticate(next), &seenUserID
}

func TestAuthenticateAcceptsValidBearer(t *testing.T) {
	userID := uuid.New()
	jwt := &stubJWTService{validToken: "good-token", userID: userID}
	handler, seen := protectedEndpoint(t, jwt)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, *seen)
}

func TestAuthenticateRejectsBadRequests(t *testing.T) {
	jwt := &stubJWTService{validToken: "good-token", userID: uuid.New()}

	cases := []struct {
		name   string
		header string
		errStub error
		want   string
	}{
		{"missing header", "", nil, "Authorization header required"},
		{"not bearer", "Basic Zm9v", nil, "Invalid authorization format"},
		{"wrong token", "Bearer bad-token", nil, "Invalid token"},
		{"expired token", "Bearer good-token", auth.ErrExpiredToken, "Token expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jwt.err = tc.errStub
			handler, _ := protectedEndpoint(t, jwt)

			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}
