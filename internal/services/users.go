package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/paperboard/backend/internal/auth"
	"github.com/emilythestrangee/paperboard/backend/internal/database"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
)

const (
	providerEmail  = "email"
	providerGoogle = "google"

	maxNameLength = 50
)

// TokenIssuer mints session tokens. Satisfied by *auth.TokenManager.
type TokenIssuer interface {
	Issue(userID int, name, email string) (string, error)
}

// IdentityVerifier resolves a third-party ID token. Satisfied by *auth.GoogleVerifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleUserInfo, error)
}

type UserService struct {
	db     *gorm.DB
	tokens TokenIssuer
	google IdentityVerifier
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, tokens TokenIssuer, google IdentityVerifier, logger *zap.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, google: google, logger: logger}
}

func (s *UserService) Register(ctx context.Context, in models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if n := utf8.RuneCountInString(name); n < 2 || n > maxNameLength {
		return nil, fmt.Errorf("%w: name must be between 2 and %d characters", ErrInvalidInput, maxNameLength)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("name = ? OR email = ?", name, email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: name or email already in use", ErrConflict)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		Password:     string(hashed),
		Image:        in.Image,
		AuthProvider: providerEmail,
	}
	if err := db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: name or email already in use", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int("user_id", user.ID))
	return s.session(&user, "Registration successful")
}

func (s *UserService) Login(ctx context.Context, in models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, err
	}
	if user.Password == "" {
		return nil, fmt.Errorf("%w: this account signs in with %s", ErrUnauthorized, user.AuthProvider)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	return s.session(&user, "Login successful")
}

// GoogleLogin signs in with a Google ID token. An existing account with the
// same email is linked; otherwise a new one is created.
func (s *UserService) GoogleLogin(ctx context.Context, in models.GoogleLoginRequest) (*models.AuthResponse, error) {
	if s.google == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", ErrUnauthorized)
	}
	info, err := s.google.Verify(ctx, in.Token)
	if err == nil && (info.Sub == "" || info.Email == "") {
		err = auth.ErrInvalidToken
	}
	if err != nil {
		s.logger.Info("google token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: invalid google token", ErrUnauthorized)
	}
	email := strings.ToLower(info.Email)

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", info.Sub).Or("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{"email_verified": true}
			if user.GoogleID == "" {
				updates["google_id"] = info.Sub
			}
			if user.Image == "" && info.Picture != "" {
				updates["image"] = info.Picture
			}
			return tx.Model(&user).Updates(updates).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		name, err := uniqueName(tx, firstNonEmpty(in.Name, info.Name, strings.Split(email, "@")[0]))
		if err != nil {
			return err
		}
		user = models.User{
			Name:          name,
			Email:         email,
			Image:         firstNonEmpty(in.Image, info.Picture),
			EmailVerified: true,
			GoogleID:      info.Sub,
			AuthProvider:  providerGoogle,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: account already exists", ErrConflict)
		}
		return nil, fmt.Errorf("google login: %w", err)
	}
	return s.session(&user, "Login successful")
}

func (s *UserService) Me(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Profile returns a user with post and like totals.
func (s *UserService) Profile(ctx context.Context, userID int) (*models.Profile, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p := &models.Profile{User: *user}

	if err := db.Model(&models.Post{}).Where("created_by_id = ?", userID).Count(&p.PostCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PostLike{}).Where("user_id = ?", userID).Count(&p.LikesGiven).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Post{}).Where("created_by_id = ?", userID).
		Select("COALESCE(SUM(like_count), 0)").Scan(&p.LikesTaken).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int, in models.UpdateProfileRequest) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > maxNameLength {
		return nil, fmt.Errorf("%w: name must be between 2 and %d characters", ErrInvalidInput, maxNameLength)
	}
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	updates := map[string]interface{}{"name": name}
	if in.Email != "" {
		updates["email"] = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if in.Image != nil {
		updates["image"] = *in.Image
	}
	if in.Bio != nil {
		updates["bio"] = strings.TrimSpace(*in.Bio)
	}

	var taken int64
	q := db.Model(&models.User{}).Where("id <> ?", userID).Where("name = ?", name)
	if email, ok := updates["email"]; ok {
		q = q.Or("id <> ? AND email = ?", userID, email)
	}
	if err := q.Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, fmt.Errorf("%w: name or email already in use", ErrConflict)
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: name or email already in use", ErrConflict)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Me(ctx, userID)
}

// SetImage stores a new avatar URL.
func (s *UserService) SetImage(ctx context.Context, userID int, url string) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("image", url)
	if res.Error != nil {
		return nil, fmt.Errorf("set image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Me(ctx, userID)
}

func (s *UserService) session(user *models.User, msg string) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Name, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.AuthResponse{Token: token, User: *user, Message: msg}, nil
}

// uniqueName turns seed into a free user name, appending a counter when needed.
func uniqueName(tx *gorm.DB, seed string) (string, error) {
	base := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			return r
		}
		if unicode.IsSpace(r) || r == '-' {
			return '_'
		}
		return -1
	}, strings.TrimSpace(seed))
	if len([]rune(base)) < 2 {
		base = "user"
	}
	if r := []rune(base); len(r) > maxNameLength-6 {
		base = string(r[:maxNameLength-6])
	}

	candidate := base
	for i := 1; i <= 50; i++ {
		var n int64
		if err := tx.Model(&models.User{}).Where("name = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return base + "_" + uuid.NewString()[:5], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
