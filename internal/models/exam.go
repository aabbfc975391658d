package models

import "time"

// Exam is an assessment scheduled for one class level.
type Exam struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	ClassLevel string    `db:"class_level" json:"class_level"`
	Date       time.Time `db:"date" json:"date"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter scopes exam listing.
type ExamFilter struct {
	ClassLevel string
	Page       int
	PageSize   int
}

// ExamRequest creates or updates an exam definition.
type ExamRequest struct {
	Name       string    `json:"name" validate:"required,max=150"`
	ClassLevel string    `json:"class_level" validate:"required,max=32"`
	Date       time.Time `json:"date" validate:"required"`
	MaxScore   float64   `json:"max_score" validate:"required,gt=0"`
}
