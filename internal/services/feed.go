package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/paperboard/backend/internal/database"
	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/metrics"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
)

const (
	maxContentLength = 1000
	maxMediaURLs     = 4

	defaultFeedLimit    = 20
	maxFeedLimit        = 100
	defaultCommentLimit = 10
	maxCommentLimit     = 50
	maxNewItems         = 50
	maxHashtagLength    = 100
)

// NewItems is the answer to a "anything new since t?" poll.
type NewItems struct {
	Items []models.PostView `json:"items"`
	Count int64             `json:"count"`
}

type FeedService struct {
	db     *gorm.DB
	events events.Publisher
	logger *zap.Logger
}

func NewFeedService(db *gorm.DB, pub events.Publisher, logger *zap.Logger) *FeedService {
	return &FeedService{db: db, events: pub, logger: logger}
}

// Create stores a post or, when ReplyToID is set, a reply. The parent's reply
// counter and any hashtags are updated in the same transaction.
func (s *FeedService) Create(ctx context.Context, userID int, in models.CreatePostRequest) (*models.PostView, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, fmt.Errorf("%w: content must be at most %d characters", ErrInvalidInput, maxContentLength)
	}
	media, err := encodeMedia(in.MediaURLs)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		Content:     content,
		MediaURLs:   media,
		ReplyToID:   in.ReplyToID,
		IsSensitive: in.IsSensitive,
		CreatedByID: userID,
	}
	var parent models.Post

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ReplyToID != nil {
			if err := tx.Select("id", "created_by_id").First(&parent, *in.ReplyToID).Error; err != nil {
				return notFound(err)
			}
		}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		if in.ReplyToID != nil {
			if err := bump(tx, parent.ID, "reply_count", 1); err != nil {
				return err
			}
		}
		return linkHashtags(tx, post.ID, ExtractHashtags(content))
	})
	if err != nil {
		return nil, err
	}

	metrics.PostsCreated.Inc()
	publish(ctx, s.events, s.logger, events.Event{Type: events.PostCreated, ActorID: userID, PostID: post.ID})
	if in.ReplyToID != nil {
		publish(ctx, s.events, s.logger, events.Event{
			Type: events.PostReplied, ActorID: userID, PostID: parent.ID, TargetID: parent.CreatedByID,
		})
	}

	views, err := s.hydrate(ctx, userID, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Feed lists top-level posts newest first. cursor is an exclusive upper bound on id.
func (s *FeedService) Feed(ctx context.Context, viewerID, limit int, cursor *int) (models.Page[models.PostView], error) {
	limit, err := pageLimit(limit, defaultFeedLimit, maxFeedLimit)
	if err != nil {
		return models.Page[models.PostView]{}, err
	}
	tx := s.db.WithContext(ctx).Where("reply_to_id IS NULL")
	if cursor != nil {
		tx = tx.Where("id < ?", *cursor)
	}
	var posts []models.Post
	if err := tx.Order("id desc").Limit(limit + 1).Find(&posts).Error; err != nil {
		return models.Page[models.PostView]{}, fmt.Errorf("load feed: %w", err)
	}
	return s.page(ctx, viewerID, posts, limit)
}

// Comments lists the replies to postID oldest first. cursor is an exclusive lower bound on id.
func (s *FeedService) Comments(ctx context.Context, viewerID, postID, limit int, cursor *int) (models.Page[models.PostView], error) {
	limit, err := pageLimit(limit, defaultCommentLimit, maxCommentLimit)
	if err != nil {
		return models.Page[models.PostView]{}, err
	}
	if err := s.exists(ctx, postID); err != nil {
		return models.Page[models.PostView]{}, err
	}
	tx := s.db.WithContext(ctx).Where("reply_to_id = ?", postID)
	if cursor != nil {
		tx = tx.Where("id > ?", *cursor)
	}
	var posts []models.Post
	if err := tx.Order("id asc").Limit(limit + 1).Find(&posts).Error; err != nil {
		return models.Page[models.PostView]{}, fmt.Errorf("load comments: %w", err)
	}
	page, err := s.page(ctx, viewerID, posts, limit)
	for i := range page.Items {
		page.Items[i].UserInteractions.Retweeted = false
	}
	return page, err
}

// UserPosts lists one author's top-level posts newest first.
func (s *FeedService) UserPosts(ctx context.Context, viewerID, authorID, limit int, cursor *int) (models.Page[models.PostView], error) {
	limit, err := pageLimit(limit, defaultFeedLimit, maxFeedLimit)
	if err != nil {
		return models.Page[models.PostView]{}, err
	}
	tx := s.db.WithContext(ctx).Where("created_by_id = ? AND reply_to_id IS NULL", authorID)
	if cursor != nil {
		tx = tx.Where("id < ?", *cursor)
	}
	var posts []models.Post
	if err := tx.Order("id desc").Limit(limit + 1).Find(&posts).Error; err != nil {
		return models.Page[models.PostView]{}, fmt.Errorf("load user posts: %w", err)
	}
	return s.page(ctx, viewerID, posts, limit)
}

// Get returns one post and counts the view.
func (s *FeedService) Get(ctx context.Context, viewerID, id int) (*models.PostView, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Post{}).Where("id = ?", id).UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("count view: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	var post models.Post
	if err := db.First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	views, err := s.hydrate(ctx, viewerID, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Latest returns the most recently created post, or nil when there is none.
func (s *FeedService) Latest(ctx context.Context, viewerID int) (*models.PostView, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("id desc").Limit(1).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("load latest post: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}
	views, err := s.hydrate(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// NewPosts returns top-level posts created after since, newest first.
func (s *FeedService) NewPosts(ctx context.Context, viewerID int, since time.Time) (NewItems, error) {
	return s.newItems(ctx, viewerID, s.db.WithContext(ctx).Where("reply_to_id IS NULL"), since)
}

// NewComments returns replies to postID created after since.
func (s *FeedService) NewComments(ctx context.Context, viewerID, postID int, since time.Time) (NewItems, error) {
	return s.newItems(ctx, viewerID, s.db.WithContext(ctx).Where("reply_to_id = ?", postID), since)
}

func (s *FeedService) newItems(ctx context.Context, viewerID int, scope *gorm.DB, since time.Time) (NewItems, error) {
	out := NewItems{Items: []models.PostView{}}
	scope = scope.Model(&models.Post{}).Where("created_at > ?", since.UTC())

	if err := scope.Session(&gorm.Session{}).Count(&out.Count).Error; err != nil {
		return out, fmt.Errorf("count new posts: %w", err)
	}
	if out.Count == 0 {
		return out, nil
	}
	var posts []models.Post
	if err := scope.Session(&gorm.Session{}).Order("id desc").Limit(maxNewItems).Find(&posts).Error; err != nil {
		return out, fmt.Errorf("load new posts: %w", err)
	}
	views, err := s.hydrate(ctx, viewerID, posts)
	if err != nil {
		return out, err
	}
	out.Items = views
	return out, nil
}

// ToggleLike flips the viewer's like and adjusts like_count.
func (s *FeedService) ToggleLike(ctx context.Context, userID, postID int) (models.ToggleResult, error) {
	res, owner, err := s.toggle(ctx, postID, "like_count",
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where("post_id = ? AND user_id = ?", postID, userID)
		},
		&models.PostLike{},
		func() interface{} { return &models.PostLike{PostID: postID, UserID: userID} },
	)
	if err != nil {
		return res, err
	}
	metrics.Interactions.WithLabelValues("like", metrics.State(res.Active)).Inc()
	typ := events.PostUnliked
	if res.Active {
		typ = events.PostLiked
	}
	publish(ctx, s.events, s.logger, events.Event{Type: typ, ActorID: userID, PostID: postID, TargetID: owner})
	return res, nil
}

// ToggleRetweet flips the viewer's retweet and adjusts retweet_count.
func (s *FeedService) ToggleRetweet(ctx context.Context, userID, postID int) (models.ToggleResult, error) {
	res, owner, err := s.toggle(ctx, postID, "retweet_count",
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where("original_post_id = ? AND user_id = ?", postID, userID)
		},
		&models.PostRetweet{},
		func() interface{} {
			return &models.PostRetweet{OriginalPostID: postID, RetweetPostID: postID, UserID: userID}
		},
	)
	if err != nil {
		return res, err
	}
	metrics.Interactions.WithLabelValues("retweet", metrics.State(res.Active)).Inc()
	typ := events.PostUnretweeted
	if res.Active {
		typ = events.PostRetweeted
	}
	publish(ctx, s.events, s.logger, events.Event{Type: typ, ActorID: userID, PostID: postID, TargetID: owner})
	return res, nil
}

// ToggleBookmark flips the viewer's bookmark. Bookmarks carry no counter.
func (s *FeedService) ToggleBookmark(ctx context.Context, userID, postID int) (models.ToggleResult, error) {
	res, _, err := s.toggle(ctx, postID, "",
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where("post_id = ? AND user_id = ?", postID, userID)
		},
		&models.PostBookmark{},
		func() interface{} { return &models.PostBookmark{PostID: postID, UserID: userID} },
	)
	if err == nil {
		metrics.Interactions.WithLabelValues("bookmark", metrics.State(res.Active)).Inc()
	}
	return res, err
}

// toggle deletes the viewer's join row if present, otherwise inserts it, and
// moves counter by one in the same direction. It returns the post owner.
func (s *FeedService) toggle(
	ctx context.Context,
	postID int,
	counter string,
	match func(tx *gorm.DB) *gorm.DB,
	model interface{},
	newRow func() interface{},
) (models.ToggleResult, int, error) {
	var (
		result models.ToggleResult
		post   models.Post
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "created_by_id").First(&post, postID).Error; err != nil {
			return notFound(err)
		}

		del := match(tx).Delete(model)
		if del.Error != nil {
			return fmt.Errorf("remove interaction: %w", del.Error)
		}
		delta := -1
		if del.RowsAffected == 0 {
			if err := tx.Create(newRow()).Error; err != nil {
				if database.IsUniqueViolation(err) {
					return ErrConflict
				}
				return fmt.Errorf("add interaction: %w", err)
			}
			delta = 1
		}
		result.Active = delta > 0

		if counter == "" {
			return nil
		}
		if err := bump(tx, postID, counter, delta); err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Select(counter).Where("id = ?", postID).Scan(&result.Count).Error
	})
	return result, post.CreatedByID, err
}

// Bookmarks lists the viewer's bookmarked posts, most recently bookmarked
// first. The cursor is a bookmark id.
func (s *FeedService) Bookmarks(ctx context.Context, userID, limit int, cursor *int) (models.Page[models.PostView], error) {
	limit, err := pageLimit(limit, defaultFeedLimit, maxFeedLimit)
	if err != nil {
		return models.Page[models.PostView]{}, err
	}
	db := s.db.WithContext(ctx)
	tx := db.Where("user_id = ?", userID)
	if cursor != nil {
		tx = tx.Where("id < ?", *cursor)
	}
	var marks []models.PostBookmark
	if err := tx.Order("id desc").Limit(limit + 1).Find(&marks).Error; err != nil {
		return models.Page[models.PostView]{}, fmt.Errorf("load bookmarks: %w", err)
	}

	page := models.Page[models.PostView]{Items: []models.PostView{}}
	if len(marks) > limit {
		marks = marks[:limit]
		next := marks[len(marks)-1].ID
		page.NextCursor = &next
	}
	if len(marks) == 0 {
		return page, nil
	}

	ids := make([]int, len(marks))
	for i, m := range marks {
		ids[i] = m.PostID
	}
	var posts []models.Post
	if err := db.Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return page, fmt.Errorf("load bookmarked posts: %w", err)
	}
	byID := make(map[int]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	page.Items, err = s.hydrate(ctx, userID, ordered)
	return page, err
}

// Delete removes a post owned by userID along with its interactions and
// hashtag links. Missing and foreign posts are indistinguishable.
func (s *FeedService) Delete(ctx context.Context, userID, postID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Where("id = ? AND created_by_id = ?", postID, userID).First(&post).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: post not found or you don't have permission to delete it", ErrNotFound)
			}
			return err
		}

		var tagIDs []int
		if err := tx.Model(&models.PostHashtag{}).Where("post_id = ?", postID).Pluck("hashtag_id", &tagIDs).Error; err != nil {
			return err
		}
		if len(tagIDs) > 0 {
			if err := tx.Model(&models.Hashtag{}).Where("id IN ? AND post_count > 0", tagIDs).
				UpdateColumn("post_count", gorm.Expr("post_count - 1")).Error; err != nil {
				return err
			}
		}

		cleanup := []struct {
			model interface{}
			where string
		}{
			{&models.PostHashtag{}, "post_id = ?"},
			{&models.PostLike{}, "post_id = ?"},
			{&models.PostBookmark{}, "post_id = ?"},
			{&models.PostRetweet{}, "original_post_id = ?"},
			{&models.Notification{}, "post_id = ?"},
		}
		for _, c := range cleanup {
			if err := tx.Where(c.where, postID).Delete(c.model).Error; err != nil {
				return fmt.Errorf("delete post dependents: %w", err)
			}
		}

		if post.ReplyToID != nil {
			if err := bump(tx, *post.ReplyToID, "reply_count", -1); err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
}

// TrendingHashtags returns the most used hashtags.
func (s *FeedService) TrendingHashtags(ctx context.Context, limit int) ([]models.Hashtag, error) {
	limit, err := pageLimit(limit, 10, 50)
	if err != nil {
		return nil, err
	}
	tags := []models.Hashtag{}
	err = s.db.WithContext(ctx).Where("post_count > 0").
		Order("post_count desc").Order("name asc").Limit(limit).Find(&tags).Error
	return tags, err
}

func (s *FeedService) exists(ctx context.Context, postID int) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// page trims the extra limit+1 row and sets NextCursor to the last kept id.
func (s *FeedService) page(ctx context.Context, viewerID int, posts []models.Post, limit int) (models.Page[models.PostView], error) {
	page := models.Page[models.PostView]{}
	if len(posts) > limit {
		posts = posts[:limit]
		next := posts[len(posts)-1].ID
		page.NextCursor = &next
	}
	items, err := s.hydrate(ctx, viewerID, posts)
	if err != nil {
		return page, err
	}
	page.Items = items
	return page, nil
}

// hydrate attaches authors, decoded media and the viewer's interactions.
func (s *FeedService) hydrate(ctx context.Context, viewerID int, posts []models.Post) ([]models.PostView, error) {
	views := make([]models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	db := s.db.WithContext(ctx)

	postIDs := make([]int, 0, len(posts))
	authorIDs := make([]int, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		authorIDs = append(authorIDs, p.CreatedByID)
	}

	var authors []models.User
	if err := db.Select("id", "name", "image").Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	byAuthor := make(map[int]models.Author, len(authors))
	for _, a := range authors {
		byAuthor[a.ID] = a.Author()
	}

	liked := map[int]bool{}
	retweeted := map[int]bool{}
	bookmarked := map[int]bool{}
	if viewerID > 0 {
		lookups := []struct {
			model  interface{}
			column string
			into   map[int]bool
		}{
			{&models.PostLike{}, "post_id", liked},
			{&models.PostRetweet{}, "original_post_id", retweeted},
			{&models.PostBookmark{}, "post_id", bookmarked},
		}
		for _, l := range lookups {
			var ids []int
			err := db.Model(l.model).Where("user_id = ? AND "+l.column+" IN ?", viewerID, postIDs).Pluck(l.column, &ids).Error
			if err != nil {
				return nil, fmt.Errorf("load interactions: %w", err)
			}
			for _, id := range ids {
				l.into[id] = true
			}
		}
	}

	for _, p := range posts {
		views = append(views, models.PostView{
			Post:      p,
			MediaURLs: decodeMedia(p.MediaURLs),
			Author:    byAuthor[p.CreatedByID],
			UserInteractions: models.Interactions{
				Liked:      liked[p.ID],
				Retweeted:  retweeted[p.ID],
				Bookmarked: bookmarked[p.ID],
			},
		})
	}
	return views, nil
}

// bump moves a post counter by delta, never below zero.
func bump(tx *gorm.DB, postID int, column string, delta int) error {
	q := tx.Model(&models.Post{}).Where("id = ?", postID)
	expr := gorm.Expr(column + " + 1")
	if delta < 0 {
		q = q.Where(column + " > 0")
		expr = gorm.Expr(column + " - 1")
	}
	if err := q.UpdateColumn(column, expr).Error; err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	return nil
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractHashtags returns the distinct lower-cased hashtags in content, in
// order of first appearance.
func ExtractHashtags(content string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(m[1])
		if utf8.RuneCountInString(tag) > maxHashtagLength || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func linkHashtags(tx *gorm.DB, postID int, tags []string) error {
	for _, name := range tags {
		tag := models.Hashtag{Name: name}
		if err := tx.Where(models.Hashtag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return fmt.Errorf("upsert hashtag %q: %w", name, err)
		}
		if err := tx.Model(&models.Hashtag{}).Where("id = ?", tag.ID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
			return fmt.Errorf("count hashtag %q: %w", name, err)
		}
		if err := tx.Create(&models.PostHashtag{PostID: postID, HashtagID: tag.ID}).Error; err != nil {
			return fmt.Errorf("link hashtag %q: %w", name, err)
		}
	}
	return nil
}

func encodeMedia(urls []string) (string, error) {
	if len(urls) == 0 {
		return "", nil
	}
	if len(urls) > maxMediaURLs {
		return "", fmt.Errorf("%w: at most %d media items", ErrInvalidInput, maxMediaURLs)
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: invalid media url %q", ErrInvalidInput, raw)
		}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeMedia tolerates legacy rows holding a single bare URL.
func decodeMedia(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{raw}
	}
	return out
}
