package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

var notificationKinds = map[string]string{
	events.PostLiked:     models.NotificationLike,
	events.PostRetweeted: models.NotificationRetweet,
	events.PostReplied:   models.NotificationReply,
}

type NotificationService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewNotificationService(db *gorm.DB, logger *zap.Logger) *NotificationService {
	return &NotificationService{db: db, logger: logger}
}

// HandleEvent stores a notification for the author of the post an event
// refers to. Self-interactions, removals and unrelated events are ignored.
func (s *NotificationService) HandleEvent(ctx context.Context, e events.Event) error {
	kind, ok := notificationKinds[e.Type]
	if !ok || e.TargetID == 0 || e.TargetID == e.ActorID {
		return nil
	}
	n := models.Notification{
		UserID:  e.TargetID,
		ActorID: e.ActorID,
		PostID:  e.PostID,
		Kind:    kind,
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.logger.Debug("notification stored",
		zap.Int("user_id", n.UserID), zap.String("kind", kind), zap.Int("post_id", n.PostID))
	return nil
}

// List returns the user's notifications newest first with the unread total.
func (s *NotificationService) List(ctx context.Context, userID, limit int) (models.NotificationList, error) {
	out := models.NotificationList{Items: []models.NotificationView{}}
	limit, err := pageLimit(limit, defaultNotificationLimit, maxNotificationLimit)
	if err != nil {
		return out, err
	}
	db := s.db.WithContext(ctx)

	var rows []models.Notification
	if err := db.Preload("Actor").Where("user_id = ?", userID).
		Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return out, fmt.Errorf("load notifications: %w", err)
	}
	for _, n := range rows {
		out.Items = append(out.Items, models.NotificationView{Notification: n, ActorInfo: n.Actor.Author()})
	}
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).Count(&out.Unread).Error; err != nil {
		return out, fmt.Errorf("count unread: %w", err)
	}
	return out, nil
}

// MarkRead flags the given notifications as read, or all of them when ids is empty.
func (s *NotificationService) MarkRead(ctx context.Context, userID int, ids []int) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark read: %w", res.Error)
	}
	return res.RowsAffected, nil
}
