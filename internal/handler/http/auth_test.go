package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/moni-del/dragon-d/internal/auth"
	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/service"
)

func TestAuth_AdminLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/login", map[string]string{
		"email": "Admin@DTStore.test", "password": "hunter22",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode[service.TokenResponse](t, rec)
	assert.Equal(t, "Bearer", env.Data.TokenType)
	assert.Equal(t, 3600, env.Data.ExpiresIn)

	claims, err := ts.jwt.Validate(env.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	// The issued token opens the admin surface.
	ts.discounts.On("List", mock.Anything, mock.Anything).Return([]domain.DiscountCode{}, 0, nil)
	rec = ts.do(t, http.MethodGet, "/api/v1/admin/discounts", nil, bearer(env.Data.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_AdminLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{name: "wrong password", body: map[string]string{"email": "admin@dtstore.test", "password": "nope"}, status: http.StatusUnauthorized},
		{name: "wrong email", body: map[string]string{"email": "root@dtstore.test", "password": "hunter22"}, status: http.StatusUnauthorized},
		{name: "malformed email", body: map[string]string{"email": "admin", "password": "hunter22"}, status: http.StatusBadRequest},
		{name: "missing password", body: map[string]string{"email": "admin@dtstore.test"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, http.MethodPost, "/api/v1/admin/login", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
