package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/domain"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestInspect(t *testing.T) {
	now := time.Now()

	t.Run("reads claims without the key", func(t *testing.T) {
		token := signed(t, Claims{
			UserID: "U1",
			Email:  "admin@institute.test",
			Role:   domain.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})

		claims, err := Inspect("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "U1", claims.Principal())
		assert.Equal(t, domain.RoleAdmin, claims.Role)
		assert.False(t, claims.Expired(now))
		left, ok := claims.ExpiresIn(now)
		assert.True(t, ok)
		assert.InDelta(t, time.Hour.Seconds(), left.Seconds(), 2)
	})

	t.Run("expired token still decodes", func(t *testing.T) {
		token := signed(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "U2",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			},
		})

		claims, err := Inspect(token)
		require.NoError(t, err)
		assert.Equal(t, "U2", claims.Principal())
		assert.True(t, claims.Expired(now))
	})

	t.Run("no expiry", func(t *testing.T) {
		claims, err := Inspect(signed(t, Claims{UserID: "U3"}))
		require.NoError(t, err)
		_, ok := claims.ExpiresIn(now)
		assert.False(t, ok)
		assert.False(t, claims.Expired(now))
	})

	t.Run("empty and garbage", func(t *testing.T) {
		_, err := Inspect("")
		assert.ErrorIs(t, err, ErrNoToken)
		_, err = Inspect("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, loginPath, r.URL.Path)
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "hunter22" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"Login successful","data":{"token":"tok"}}`))
	}))
	defer srv.Close()
	client := clients.NewAPIClient(srv.URL, nil, nil)

	token, err := Login(context.Background(), client, Credentials{Email: "a@b.c", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = Login(context.Background(), client, Credentials{Email: "a@b.c", Password: "nope"})
	require.Error(t, err)
	msg, ok := clients.MessageOf(err)
	assert.True(t, ok)
	assert.Equal(t, "Invalid credentials", msg)
}
