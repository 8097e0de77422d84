// Package seed fills a database with fake users, papers and feed activity.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
)

// Password is shared by every seeded account.
const Password = "123456"

type Options struct {
	Users  int
	Papers int
	Posts  int
	Seed   int64
}

type Summary struct {
	Users   int
	Papers  int
	Posts   int
	Replies int
	Likes   int
}

// Seeder drives the regular services so counters stay consistent.
type Seeder struct {
	users  *services.UserService
	papers *services.PaperService
	feed   *services.FeedService
	logger *zap.Logger
}

func New(users *services.UserService, papers *services.PaperService, feed *services.FeedService, logger *zap.Logger) *Seeder {
	return &Seeder{users: users, papers: papers, feed: feed, logger: logger}
}

func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users < 1 {
		return sum, fmt.Errorf("seed: need at least one user")
	}
	f := gofakeit.New(opts.Seed)

	userIDs := make([]int, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		name := fmt.Sprintf("%s%d", strings.ToLower(f.Username()), f.Number(10, 9999))
		if len(name) > 40 {
			name = name[:40]
		}
		res, err := s.users.Register(ctx, models.RegisterRequest{
			Name:     name,
			Email:    name + "@" + f.DomainName(),
			Password: Password,
		})
		if err != nil {
			return sum, fmt.Errorf("seed: user %d: %w", i, err)
		}
		userIDs = append(userIDs, res.User.ID)
		sum.Users++
	}
	pick := func() int { return userIDs[f.Number(0, len(userIDs)-1)] }

	facets := s.papers.Facets()
	for i := 0; i < opts.Papers; i++ {
		dept := f.RandomString(facets.Departments)
		code := fmt.Sprintf("%s%d", strings.ToUpper(dept[:min(4, len(dept))]), f.Number(100, 499))
		_, err := s.papers.Create(ctx, pick(), models.CreatePaperRequest{
			CourseName:    strings.TrimSuffix(f.Sentence(3), "."),
			CourseCode:    code,
			ProfessorName: "Dr. " + f.LastName(),
			Semester:      f.RandomString(facets.Semesters),
			Department:    dept,
			PaperType:     f.RandomString(facets.PaperTypes),
			PaperPDFURL:   fmt.Sprintf("https://%s/papers/%s.pdf", f.DomainName(), strings.ToLower(code)),
		})
		if err != nil {
			return sum, fmt.Errorf("seed: paper %d: %w", i, err)
		}
		sum.Papers++
	}

	var postIDs []int
	for i := 0; i < opts.Posts; i++ {
		content := f.Sentence(f.Number(4, 20))
		if f.Bool() {
			content += " #" + strings.ToLower(f.RandomString(facets.Departments))
		}
		req := models.CreatePostRequest{Content: content}
		if len(postIDs) > 0 && f.Number(1, 4) == 1 {
			parent := postIDs[f.Number(0, len(postIDs)-1)]
			req.ReplyToID = &parent
		}
		p, err := s.feed.Create(ctx, pick(), req)
		if err != nil {
			return sum, fmt.Errorf("seed: post %d: %w", i, err)
		}
		if req.ReplyToID != nil {
			sum.Replies++
		} else {
			postIDs = append(postIDs, p.ID)
			sum.Posts++
		}

		for j := f.Number(0, 3); j > 0; j-- {
			res, err := s.feed.ToggleLike(ctx, pick(), p.ID)
			if err != nil {
				return sum, fmt.Errorf("seed: like: %w", err)
			}
			if res.Active {
				sum.Likes++
			} else {
				sum.Likes--
			}
		}
	}

	s.logger.Info("seed complete",
		zap.Int("users", sum.Users), zap.Int("papers", sum.Papers),
		zap.Int("posts", sum.Posts), zap.Int("replies", sum.Replies), zap.Int("likes", sum.Likes))
	return sum, nil
}
