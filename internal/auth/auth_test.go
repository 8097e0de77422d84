package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	tok, err := m.Issue(7, "ada", "ada@example.com")
	require.NoError(t, err)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "ada", claims.Name)
	assert.Equal(t, "7", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewTokenManager("other", time.Hour).Issue(1, "a", "a@b.c")
		require.NoError(t, err)
		_, err = m.Parse(tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenManager("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		tok, err := old.Issue(1, "a", "a@b.c")
		require.NoError(t, err)
		_, err = m.Parse(tok)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1})
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(s)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestGoogleVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id_token") {
		case "good":
			_, _ = w.Write([]byte(`{"sub":"g-1","email":"g@example.com","email_verified":"true","name":"G"}`))
		case "unverified":
			_, _ = w.Write([]byte(`{"sub":"g-2","email":"u@example.com","email_verified":"false"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	v := NewGoogleVerifier(srv.URL, srv.Client())
	ctx := context.Background()

	info, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "g-1", info.Sub)
	assert.Equal(t, "g@example.com", info.Email)

	_, err = v.Verify(ctx, "unverified")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	_, err = v.Verify(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
