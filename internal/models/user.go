package models

import "time"

type User struct {
	ID            int    `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Email         string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password      string `json:"-"` // empty for OAuth accounts
	Image         string `json:"image"`
	Bio           string `json:"bio"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	GoogleID     string `gorm:"index" json:"-"`
	AuthProvider string `gorm:"size:20;default:email" json:"auth_provider"` // "email" or "google"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Author is the public slice of a user embedded in posts and papers.
type Author struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (u User) Author() Author {
	return Author{ID: u.ID, Name: u.Name, Image: u.Image}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Image    string `json:"image"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	Token string `json:"token" binding:"required"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type UpdateProfileRequest struct {
	Name  string  `json:"name" binding:"required,min=2,max=50"`
	Email string  `json:"email" binding:"omitempty,email"`
	Image *string `json:"image"`
	Bio   *string `json:"bio" binding:"omitempty,max=280"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}

type Profile struct {
	User       User  `json:"user"`
	PostCount  int64 `json:"post_count"`
	LikesGiven int64 `json:"likes_given"`
	LikesTaken int64 `json:"likes_received"`
}
