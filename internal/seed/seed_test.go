package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/auth"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
	"github.com/emilythestrangee/paperboard/backend/internal/testutil"
)

func TestRun(t *testing.T) {
	db := testutil.NewDB(t)
	logger := zap.NewNop()
	s := New(
		services.NewUserService(db, auth.NewTokenManager("test-secret", 0), nil, logger),
		services.NewPaperService(db, nil, nil, logger),
		services.NewFeedService(db, nil, logger),
		logger,
	)

	sum, err := s.Run(context.Background(), Options{Users: 5, Papers: 4, Posts: 30, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 4, sum.Papers)
	assert.Equal(t, 30, sum.Posts+sum.Replies)

	var users, papers, posts, likes int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Paper{}).Count(&papers).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	assert.EqualValues(t, 5, users)
	assert.EqualValues(t, 4, papers)
	assert.EqualValues(t, 30, posts)
	assert.EqualValues(t, sum.Likes, likes)

	// Stored counters agree with the rows they summarise.
	var mismatched int64
	require.NoError(t, db.Model(&models.Post{}).
		Where("like_count <> (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)").
		Count(&mismatched).Error)
	assert.Zero(t, mismatched)
	require.NoError(t, db.Model(&models.Post{}).
		Where("reply_count <> (SELECT COUNT(*) FROM posts AS r WHERE r.reply_to_id = posts.id)").
		Count(&mismatched).Error)
	assert.Zero(t, mismatched)
}

func TestRunRequiresUsers(t *testing.T) {
	s := New(nil, nil, nil, zap.NewNop())
	_, err := s.Run(context.Background(), Options{Posts: 3})
	assert.Error(t, err)
}
