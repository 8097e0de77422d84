package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/testutil"
)

func TestNotificationsFromFeedEvents(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &events.Recorder{}
	feed := NewFeedService(db, rec, zap.NewNop())
	notes := NewNotificationService(db, zap.NewNop())
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	post := mustPost(t, feed, alice.ID, "hello", nil)
	_, err := feed.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	_, err = feed.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	_, err = feed.ToggleRetweet(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	mustPost(t, feed, bob.ID, "reply", &post.ID)
	// Self-interactions never notify.
	_, err = feed.ToggleLike(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	mustPost(t, feed, alice.ID, "self reply", &post.ID)

	for _, e := range rec.Events {
		require.NoError(t, notes.HandleEvent(ctx, e))
	}

	list, err := notes.List(ctx, alice.ID, 0)
	require.NoError(t, err)
	kinds := make([]string, 0, len(list.Items))
	for _, n := range list.Items {
		kinds = append(kinds, n.Kind)
		assert.Equal(t, "bob", n.ActorInfo.Name)
		assert.Equal(t, post.ID, n.PostID)
	}
	assert.Equal(t, []string{models.NotificationReply, models.NotificationRetweet, models.NotificationLike}, kinds)
	assert.EqualValues(t, 3, list.Unread)

	empty, err := notes.List(ctx, bob.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.Unread)

	n, err := notes.MarkRead(ctx, alice.ID, []int{list.Items[0].ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Someone else's ids are not touched.
	n, err = notes.MarkRead(ctx, bob.ID, []int{list.Items[1].ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = notes.MarkRead(ctx, alice.ID, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err = notes.List(ctx, alice.ID, 2)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Zero(t, list.Unread)

	_, err = notes.List(ctx, alice.ID, 500)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHandleEventIgnoresUnrelated(t *testing.T) {
	db := testutil.NewDB(t)
	notes := NewNotificationService(db, zap.NewNop())
	ctx := context.Background()

	for _, e := range []events.Event{
		{Type: events.PaperCreated, ActorID: 1, PaperID: 1},
		{Type: events.PostCreated, ActorID: 1, PostID: 1},
		{Type: events.PostUnliked, ActorID: 2, PostID: 1, TargetID: 1},
		{Type: events.PostLiked, ActorID: 2, PostID: 1},
	} {
		require.NoError(t, notes.HandleEvent(ctx, e))
	}

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}
