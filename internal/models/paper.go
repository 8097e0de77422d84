package models

import "time"

const (
	PaperTypeMidterm = "midterm"
	PaperTypeFinal   = "final"
)

// FilterAll is the sentinel the browse UI sends for "no filter".
const FilterAll = "All"

type Paper struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	CourseName    string    `gorm:"size:200;not null" json:"course_name"`
	CourseCode    string    `gorm:"size:50;not null;index" json:"course_code"`
	ProfessorName string    `gorm:"size:200;not null" json:"professor_name"`
	Semester      string    `gorm:"size:50;not null;index" json:"semester"`
	Department    string    `gorm:"size:100;not null;index" json:"department"`
	PaperType     string    `gorm:"size:20;not null;index" json:"paper_type"`
	PaperPDFURL   string    `gorm:"column:paper_pdf_url;not null" json:"paper_pdf_url"`
	PDFKey        string    `gorm:"column:pdf_key" json:"-"`
	CreatedByID   int       `gorm:"not null;index" json:"created_by_id"`
	CreatedBy     User      `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreatePaperRequest struct {
	CourseName    string `json:"course_name" binding:"required,min=2"`
	CourseCode    string `json:"course_code" binding:"required,min=1"`
	ProfessorName string `json:"professor_name" binding:"required,min=2"`
	Semester      string `json:"semester" binding:"required,min=1"`
	Department    string `json:"department" binding:"required,min=1"`
	PaperType     string `json:"paper_type" binding:"required,oneof=midterm final"`
	PaperPDFURL   string `json:"paper_pdf_url"`
	PDFKey        string `json:"pdf_key"`
}

type PaperSearch struct {
	SearchTerm string `form:"q"`
	Department string `form:"department"`
	Semester   string `form:"semester"`
	PaperType  string `form:"paper_type"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type PaperFacets struct {
	Departments []string `json:"departments"`
	Semesters   []string `json:"semesters"`
	PaperTypes  []string `json:"paper_types"`
}

// Upload is the result of storing a file in object storage.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
