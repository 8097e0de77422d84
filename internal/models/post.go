package models

import "time"

type Post struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	Content        string    `gorm:"size:1000;not null;index:content_idx" json:"content"`
	MediaURLs      string    `gorm:"column:media_urls" json:"-"` // JSON array
	IsRetweet      bool      `gorm:"default:false" json:"is_retweet"`
	OriginalPostID *int      `gorm:"index" json:"original_post_id,omitempty"`
	ReplyToID      *int      `gorm:"index" json:"reply_to_id,omitempty"`
	QuotePostID    *int      `gorm:"index" json:"quote_post_id,omitempty"`
	LikeCount      int       `gorm:"default:0;not null" json:"like_count"`
	RetweetCount   int       `gorm:"default:0;not null" json:"retweet_count"`
	ReplyCount     int       `gorm:"default:0;not null" json:"reply_count"`
	ViewCount      int       `gorm:"default:0;not null" json:"view_count"`
	IsSensitive    bool      `gorm:"default:false" json:"is_sensitive"`
	IsPinned       bool      `gorm:"default:false" json:"is_pinned"`
	CreatedByID    int       `gorm:"not null;index" json:"created_by_id"`
	CreatedBy      User      `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PostLike struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	PostID    int       `gorm:"not null;uniqueIndex:post_like_unique;index" json:"post_id"`
	UserID    int       `gorm:"not null;uniqueIndex:post_like_unique;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PostRetweet struct {
	ID             int       `gorm:"primaryKey" json:"id"`
	OriginalPostID int       `gorm:"not null;uniqueIndex:retweet_unique;index" json:"original_post_id"`
	RetweetPostID  int       `gorm:"not null;index" json:"retweet_post_id"`
	UserID         int       `gorm:"not null;uniqueIndex:retweet_unique;index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type PostBookmark struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	PostID    int       `gorm:"not null;uniqueIndex:bookmark_unique;index" json:"post_id"`
	UserID    int       `gorm:"not null;uniqueIndex:bookmark_unique;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Hashtag struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	PostCount int       `gorm:"default:0;not null" json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
}

type PostHashtag struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	PostID    int       `gorm:"not null;uniqueIndex:post_hashtag_unique;index" json:"post_id"`
	HashtagID int       `gorm:"not null;uniqueIndex:post_hashtag_unique;index" json:"hashtag_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Content     string   `json:"content" binding:"required,min=1,max=1000"`
	MediaURLs   []string `json:"media_urls" binding:"omitempty,max=4,dive,url"`
	ReplyToID   *int     `json:"reply_to_id"`
	IsSensitive bool     `json:"is_sensitive"`
}

// Interactions is the viewer's relationship to a post.
type Interactions struct {
	Liked      bool `json:"liked"`
	Retweeted  bool `json:"retweeted"`
	Bookmarked bool `json:"bookmarked"`
}

// PostView is a post as returned to clients.
type PostView struct {
	Post
	MediaURLs        []string     `json:"media_urls"`
	Author           Author       `json:"created_by"`
	UserInteractions Interactions `json:"user_interactions"`
}

// Page is one cursor-paginated slice of a listing.
type Page[T any] struct {
	Items      []T  `json:"items"`
	NextCursor *int `json:"next_cursor"`
}

type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}
