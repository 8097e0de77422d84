package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/metrics"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
)

const (
	defaultPaperLimit = 50
	maxPaperLimit     = 100
)

var paperFacets = models.PaperFacets{
	Departments: []string{
		"computer-science", "mathematics", "physics", "chemistry", "biology", "engineering",
		"business", "economics", "psychology", "history", "english", "other",
	},
	Semesters: []string{
		"fall-2024", "spring-2024", "summer-2024", "fall-2023", "spring-2023", "summer-2023",
	},
	PaperTypes: []string{models.PaperTypeMidterm, models.PaperTypeFinal},
}

// ObjectRemover deletes a stored object. Satisfied by *storage.Storage.
type ObjectRemover interface {
	Remove(ctx context.Context, key string) error
}

type PaperService struct {
	db     *gorm.DB
	events events.Publisher
	files  ObjectRemover
	logger *zap.Logger
}

func NewPaperService(db *gorm.DB, pub events.Publisher, files ObjectRemover, logger *zap.Logger) *PaperService {
	return &PaperService{db: db, events: pub, files: files, logger: logger}
}

// Facets returns the catalogue values the browse filters offer.
func (s *PaperService) Facets() models.PaperFacets {
	return paperFacets
}

func (s *PaperService) Create(ctx context.Context, userID int, in models.CreatePaperRequest) (*models.Paper, error) {
	in.CourseName = strings.TrimSpace(in.CourseName)
	in.CourseCode = strings.TrimSpace(in.CourseCode)
	in.ProfessorName = strings.TrimSpace(in.ProfessorName)

	switch {
	case utf8.RuneCountInString(in.CourseName) < 2:
		return nil, fmt.Errorf("%w: course name must be at least 2 characters", ErrInvalidInput)
	case in.CourseCode == "":
		return nil, fmt.Errorf("%w: course code is required", ErrInvalidInput)
	case utf8.RuneCountInString(in.ProfessorName) < 2:
		return nil, fmt.Errorf("%w: professor name must be at least 2 characters", ErrInvalidInput)
	case in.Semester == "" || in.Department == "":
		return nil, fmt.Errorf("%w: semester and department are required", ErrInvalidInput)
	case in.PaperType != models.PaperTypeMidterm && in.PaperType != models.PaperTypeFinal:
		return nil, fmt.Errorf("%w: paper type must be midterm or final", ErrInvalidInput)
	case in.PaperPDFURL == "" && in.PDFKey == "":
		return nil, fmt.Errorf("%w: a paper PDF is required", ErrInvalidInput)
	case in.PDFKey != "" && !storage.PaperPDF.OwnedBy(in.PDFKey, userID):
		return nil, fmt.Errorf("%w: pdf_key was not uploaded by this account", ErrInvalidInput)
	}

	paper := models.Paper{
		CourseName:    in.CourseName,
		CourseCode:    in.CourseCode,
		ProfessorName: in.ProfessorName,
		Semester:      in.Semester,
		Department:    in.Department,
		PaperType:     in.PaperType,
		PaperPDFURL:   in.PaperPDFURL,
		PDFKey:        in.PDFKey,
		CreatedByID:   userID,
	}
	if err := s.db.WithContext(ctx).Create(&paper).Error; err != nil {
		return nil, fmt.Errorf("create paper: %w", err)
	}

	metrics.PapersCreated.Inc()
	publish(ctx, s.events, s.logger, events.Event{Type: events.PaperCreated, ActorID: userID, PaperID: paper.ID})
	return &paper, nil
}

func (s *PaperService) Get(ctx context.Context, id int) (*models.Paper, error) {
	var paper models.Paper
	if err := s.db.WithContext(ctx).First(&paper, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &paper, nil
}

// Search matches the term against course name, code and professor (OR) and
// applies each non-"All" filter (AND). Newest first.
func (s *PaperService) Search(ctx context.Context, q models.PaperSearch) ([]models.Paper, error) {
	limit, err := pageLimit(q.Limit, defaultPaperLimit, maxPaperLimit)
	if err != nil {
		return nil, err
	}
	if q.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}

	tx := s.db.WithContext(ctx).Model(&models.Paper{})
	if term := strings.ToLower(strings.TrimSpace(q.SearchTerm)); term != "" {
		like := "%" + escapeLike(term) + "%"
		tx = tx.Where(
			"LOWER(course_name) LIKE ? ESCAPE '\\' OR LOWER(course_code) LIKE ? ESCAPE '\\' OR LOWER(professor_name) LIKE ? ESCAPE '\\'",
			like, like, like,
		)
	}
	if isFilter(q.Department) {
		tx = tx.Where("department = ?", q.Department)
	}
	if isFilter(q.Semester) {
		tx = tx.Where("semester = ?", q.Semester)
	}
	if isFilter(q.PaperType) {
		tx = tx.Where("paper_type = ?", q.PaperType)
	}

	papers := []models.Paper{}
	if err := tx.Order("created_at desc").Order("id desc").Limit(limit).Offset(q.Offset).Find(&papers).Error; err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}
	return papers, nil
}

// List is Search without any filter.
func (s *PaperService) List(ctx context.Context, limit, offset int) ([]models.Paper, error) {
	return s.Search(ctx, models.PaperSearch{Limit: limit, Offset: offset})
}

// Delete removes a paper owned by userID together with its stored PDF.
func (s *PaperService) Delete(ctx context.Context, userID, id int) error {
	paper, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if paper.CreatedByID != userID {
		return ErrForbidden
	}
	if err := s.db.WithContext(ctx).Delete(&models.Paper{}, id).Error; err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	if paper.PDFKey == "" || s.files == nil {
		return nil
	}
	var shared int64
	if err := s.db.WithContext(ctx).Model(&models.Paper{}).Where("pdf_key = ?", paper.PDFKey).Count(&shared).Error; err != nil {
		return fmt.Errorf("count pdf references: %w", err)
	}
	if shared == 0 {
		if err := s.files.Remove(ctx, paper.PDFKey); err != nil {
			s.logger.Warn("failed to remove paper pdf", zap.String("key", paper.PDFKey), zap.Error(err))
		}
	}
	return nil
}

func isFilter(v string) bool {
	return v != "" && v != models.FilterAll
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func publish(ctx context.Context, pub events.Publisher, logger *zap.Logger, e events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		logger.Warn("failed to publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
