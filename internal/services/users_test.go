package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/auth"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/testutil"
)

type fakeGoogle struct {
	info *auth.GoogleUserInfo
	err  error
}

func (f fakeGoogle) Verify(context.Context, string) (*auth.GoogleUserInfo, error) {
	return f.info, f.err
}

func newUsers(t *testing.T, google IdentityVerifier) (*UserService, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(testutil.NewDB(t), tokens, google, zap.NewNop()), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	s, tokens := newUsers(t, nil)
	ctx := context.Background()

	res, err := s.Register(ctx, models.RegisterRequest{Name: "alice", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEqual(t, "secret1", res.User.Password)

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = s.Register(ctx, models.RegisterRequest{Name: "alice", Email: "other@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Register(ctx, models.RegisterRequest{Name: "alice2", Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Register(ctx, models.RegisterRequest{Name: "bob", Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Register(ctx, models.RegisterRequest{Name: "Ö", Email: "o@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidInput, "one character even though it is two bytes")
	ok, err := s.Register(ctx, models.RegisterRequest{Name: "Zoë", Email: "zoe@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Zoë", ok.User.Name)

	login, err := s.Login(ctx, models.LoginRequest{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = s.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = s.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGoogleLogin(t *testing.T) {
	t.Run("creates an account with a free name", func(t *testing.T) {
		s, _ := newUsers(t, fakeGoogle{info: &auth.GoogleUserInfo{
			Sub: "g-1", Email: "jane.doe@gmail.com", EmailVerified: "true", Picture: "https://img/jane.png",
		}})
		ctx := context.Background()
		testutil.CreateUser(t, s.db, "jane.doe")

		res, err := s.GoogleLogin(ctx, models.GoogleLoginRequest{Token: "tok"})
		require.NoError(t, err)
		assert.Equal(t, "jane.doe1", res.User.Name)
		assert.Equal(t, "google", res.User.AuthProvider)
		assert.True(t, res.User.EmailVerified)
		assert.Equal(t, "https://img/jane.png", res.User.Image)

		again, err := s.GoogleLogin(ctx, models.GoogleLoginRequest{Token: "tok"})
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, again.User.ID)

		_, err = s.Login(ctx, models.LoginRequest{Email: "jane.doe@gmail.com", Password: "anything"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("links an existing email account", func(t *testing.T) {
		s, _ := newUsers(t, fakeGoogle{info: &auth.GoogleUserInfo{
			Sub: "g-2", Email: "bob@example.com", EmailVerified: "true",
		}})
		ctx := context.Background()
		reg, err := s.Register(ctx, models.RegisterRequest{Name: "bob", Email: "bob@example.com", Password: "secret1"})
		require.NoError(t, err)

		res, err := s.GoogleLogin(ctx, models.GoogleLoginRequest{Token: "tok"})
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)

		me, err := s.Me(ctx, reg.User.ID)
		require.NoError(t, err)
		assert.Equal(t, "g-2", me.GoogleID)
		assert.True(t, me.EmailVerified)
	})

	t.Run("rejects bad tokens", func(t *testing.T) {
		s, _ := newUsers(t, fakeGoogle{err: errors.New("status 400")})
		_, err := s.GoogleLogin(context.Background(), models.GoogleLoginRequest{Token: "bad"})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUpdateProfile(t *testing.T) {
	s, _ := newUsers(t, nil)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s.db, "alice")
	testutil.CreateUser(t, s.db, "bob")

	bio := "  studying maths  "
	img := "https://img/alice.png"
	u, err := s.UpdateProfile(ctx, alice.ID, models.UpdateProfileRequest{Name: "alice_b", Image: &img, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "alice_b", u.Name)
	assert.Equal(t, "studying maths", u.Bio)
	assert.Equal(t, img, u.Image)

	_, err = s.UpdateProfile(ctx, alice.ID, models.UpdateProfileRequest{Name: "bob"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.UpdateProfile(ctx, alice.ID, models.UpdateProfileRequest{Name: "alice_b", Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.UpdateProfile(ctx, alice.ID, models.UpdateProfileRequest{Name: "a"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.UpdateProfile(ctx, 9999, models.UpdateProfileRequest{Name: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	u, err = s.SetImage(ctx, alice.ID, "https://img/new.png")
	require.NoError(t, err)
	assert.Equal(t, "https://img/new.png", u.Image)
}

func TestProfileCounts(t *testing.T) {
	s, _ := newUsers(t, nil)
	ctx := context.Background()
	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")

	feed := NewFeedService(s.db, nil, zap.NewNop())
	p1 := mustPost(t, feed, alice.ID, "one", nil)
	mustPost(t, feed, alice.ID, "two", nil)
	_, err := feed.ToggleLike(ctx, bob.ID, p1.ID)
	require.NoError(t, err)

	p, err := s.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.PostCount)
	assert.EqualValues(t, 0, p.LikesGiven)
	assert.EqualValues(t, 1, p.LikesTaken)

	p, err = s.Profile(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.LikesGiven)

	_, err = s.Profile(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
