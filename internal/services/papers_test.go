package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/events"
	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
	"github.com/emilythestrangee/paperboard/backend/internal/testutil"
)

type fakeRemover struct {
	removed []string
	err     error
}

func (f *fakeRemover) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return f.err
}

func paperRequest(course, code, prof, dept, sem, typ string) models.CreatePaperRequest {
	return models.CreatePaperRequest{
		CourseName:    course,
		CourseCode:    code,
		ProfessorName: prof,
		Department:    dept,
		Semester:      sem,
		PaperType:     typ,
		PaperPDFURL:   "https://files.example.com/" + code + ".pdf",
	}
}

func TestPaperCreateValidation(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewPaperService(db, nil, nil, zap.NewNop())
	u := testutil.CreateUser(t, db, "alice")

	valid := paperRequest("Algorithms", "CS301", "Dr. Knuth", "computer-science", "fall-2024", "final")
	tests := []struct {
		name   string
		mutate func(r *models.CreatePaperRequest)
	}{
		{"short course name", func(r *models.CreatePaperRequest) { r.CourseName = "A" }},
		{"missing code", func(r *models.CreatePaperRequest) { r.CourseCode = " " }},
		{"short professor", func(r *models.CreatePaperRequest) { r.ProfessorName = "K" }},
		{"missing semester", func(r *models.CreatePaperRequest) { r.Semester = "" }},
		{"bad type", func(r *models.CreatePaperRequest) { r.PaperType = "quiz" }},
		{"no pdf", func(r *models.CreatePaperRequest) { r.PaperPDFURL = "" }},
		{"one-letter course in multibyte text", func(r *models.CreatePaperRequest) { r.CourseName = "Ö" }},
		{"one-letter professor in multibyte text", func(r *models.CreatePaperRequest) { r.ProfessorName = "李" }},
		{"pdf key of another user", func(r *models.CreatePaperRequest) { r.PDFKey = storage.PaperPDF.NewKey(u.ID+1, "application/pdf") }},
		{"pdf key outside papers", func(r *models.CreatePaperRequest) { r.PDFKey = storage.Avatar.NewKey(u.ID, "image/png") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := s.Create(context.Background(), u.ID, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPaperSearch(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &events.Recorder{}
	s := NewPaperService(db, rec, nil, zap.NewNop())
	u := testutil.CreateUser(t, db, "alice")
	ctx := context.Background()

	seed := []models.CreatePaperRequest{
		paperRequest("Algorithms", "CS301", "Dr. Knuth", "computer-science", "fall-2024", "final"),
		paperRequest("Linear Algebra", "MATH210", "Dr. Strang", "mathematics", "spring-2024", "midterm"),
		paperRequest("Data Structures", "CS201", "Dr. Tarjan", "computer-science", "spring-2024", "midterm"),
		paperRequest("100% Pure Maths", "MATH100", "Dr. Hardy", "mathematics", "fall-2023", "final"),
	}
	var ids []int
	for _, in := range seed {
		p, err := s.Create(ctx, u.ID, in)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	assert.Len(t, rec.Events, 4)

	titles := func(ps []models.Paper) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.CourseCode
		}
		return out
	}

	tests := []struct {
		name string
		q    models.PaperSearch
		want []string
	}{
		{"everything newest first", models.PaperSearch{}, []string{"MATH100", "CS201", "MATH210", "CS301"}},
		{"term matches code case-insensitively", models.PaperSearch{SearchTerm: "cs"}, []string{"CS201", "CS301"}},
		{"term matches professor", models.PaperSearch{SearchTerm: "strang"}, []string{"MATH210"}},
		{"percent is literal", models.PaperSearch{SearchTerm: "100%"}, []string{"MATH100"}},
		{"department filter", models.PaperSearch{Department: "mathematics"}, []string{"MATH100", "MATH210"}},
		{"All is ignored", models.PaperSearch{Department: "All", Semester: "All", PaperType: "All"}, []string{"MATH100", "CS201", "MATH210", "CS301"}},
		{"filters combine", models.PaperSearch{Department: "computer-science", PaperType: "midterm"}, []string{"CS201"}},
		{"term and filter", models.PaperSearch{SearchTerm: "dr", Semester: "spring-2024"}, []string{"CS201", "MATH210"}},
		{"limit and offset", models.PaperSearch{Limit: 2, Offset: 1}, []string{"CS201", "MATH210"}},
		{"no match", models.PaperSearch{SearchTerm: "biology"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}

	_, err := s.Search(ctx, models.PaperSearch{Limit: 101})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Search(ctx, models.PaperSearch{Offset: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	all, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := s.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", got.CourseName)
	_, err = s.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaperDelete(t *testing.T) {
	db := testutil.NewDB(t)
	files := &fakeRemover{err: errors.New("bucket gone")}
	s := NewPaperService(db, nil, files, zap.NewNop())
	owner := testutil.CreateUser(t, db, "alice")
	other := testutil.CreateUser(t, db, "bob")
	ctx := context.Background()

	in := paperRequest("Algorithms", "CS301", "Dr. Knuth", "computer-science", "fall-2024", "final")
	in.PDFKey = storage.PaperPDF.NewKey(owner.ID, "application/pdf")
	p, err := s.Create(ctx, owner.ID, in)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(ctx, other.ID, p.ID), ErrForbidden)
	assert.ErrorIs(t, s.Delete(ctx, owner.ID, 9999), ErrNotFound)

	// A storage failure does not fail the delete.
	require.NoError(t, s.Delete(ctx, owner.ID, p.ID))
	assert.Equal(t, []string{in.PDFKey}, files.removed)

	_, err = s.Get(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaperDeleteKeepsSharedPDF(t *testing.T) {
	db := testutil.NewDB(t)
	files := &fakeRemover{}
	s := NewPaperService(db, nil, files, zap.NewNop())
	owner := testutil.CreateUser(t, db, "alice")
	ctx := context.Background()

	in := paperRequest("Algorithms", "CS301", "Dr. Knuth", "computer-science", "fall-2024", "final")
	in.PDFKey = storage.PaperPDF.NewKey(owner.ID, "application/pdf")
	first, err := s.Create(ctx, owner.ID, in)
	require.NoError(t, err)
	in.PaperType = models.PaperTypeMidterm
	second, err := s.Create(ctx, owner.ID, in)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, owner.ID, first.ID))
	assert.Empty(t, files.removed, "object still referenced by another paper")

	require.NoError(t, s.Delete(ctx, owner.ID, second.ID))
	assert.Equal(t, []string{in.PDFKey}, files.removed)
}

func TestFacets(t *testing.T) {
	s := NewPaperService(nil, nil, nil, zap.NewNop())
	f := s.Facets()
	assert.Contains(t, f.Departments, "computer-science")
	assert.Equal(t, []string{"midterm", "final"}, f.PaperTypes)
}
