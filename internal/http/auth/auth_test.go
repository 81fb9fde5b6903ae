package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/http/auth"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestManager_IssueVerify(t *testing.T) {
	m := auth.NewManager(secret, "haulbook")

	tok, err := m.Issue("truck-7", time.Hour)
	require.NoError(t, err)

	sub, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "truck-7", sub)
}

func TestManager_VerifyRejects(t *testing.T) {
	m := auth.NewManager(secret, "haulbook")

	otherIssuer, err := auth.NewManager(secret, "someone-else").Issue("x", 0)
	require.NoError(t, err)

	otherSecret, err := auth.NewManager("another-secret-another-secret!!!", "haulbook").Issue("x", 0)
	require.NoError(t, err)

	expiring := auth.NewManager(secret, "haulbook")
	expiring.SetClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expired, err := expiring.Issue("x", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong issuer", otherIssuer},
		{"wrong secret", otherSecret},
		{"expired", expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestManager_Middleware(t *testing.T) {
	m := auth.NewManager(secret, "haulbook")

	tok, err := m.Issue("truck-7", 0)
	require.NoError(t, err)

	var seen string

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.Subject(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + tok, http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
		{"lowercase scheme", "bearer " + tok, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""

			req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)

			if tt.want == http.StatusOK {
				assert.Equal(t, "truck-7", seen)
			} else {
				assert.Empty(t, seen)
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}
