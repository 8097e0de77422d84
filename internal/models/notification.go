package models

import "time"

const (
	NotificationLike    = "like"
	NotificationRetweet = "retweet"
	NotificationReply   = "reply"
)

type Notification struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	ActorID   int       `gorm:"not null" json:"actor_id"`
	Actor     User      `gorm:"foreignKey:ActorID" json:"-"`
	PostID    int       `gorm:"not null;index" json:"post_id"`
	Kind      string    `gorm:"size:20;not null" json:"kind"`
	Read      bool      `gorm:"default:false;not null" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

type NotificationView struct {
	Notification
	ActorInfo Author `json:"actor"`
}

type NotificationList struct {
	Items  []NotificationView `json:"items"`
	Unread int64              `json:"unread"`
}
