package models

import "time"

// Grade is one student's score on one exam. Unique per (student, exam);
// re-entry updates the stored score instead of duplicating.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ExamID    string    `db:"exam_id" json:"exam_id"`
	Score     float64   `db:"score" json:"score"`
	EnteredBy string    `db:"entered_by" json:"entered_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReportRow is one line of a student's academic report, joined with exam
// metadata and ordered by exam date.
type ReportRow struct {
	ExamID     string    `db:"exam_id" json:"exam_id"`
	ExamName   string    `db:"exam_name" json:"exam_name"`
	ExamDate   time.Time `db:"exam_date" json:"exam_date"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	Score      float64   `db:"score" json:"score"`
	Percentage float64   `json:"percentage"`
}

// GradeRequest records or corrects one student's score on an exam.
type GradeRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	ExamID    string  `json:"exam_id" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0"`
}

// AcademicReport aggregates a student's graded exams. Average is nil, not
// zero, when the student has no grades; callers can tell the states apart.
type AcademicReport struct {
	StudentID string      `json:"student_id"`
	Rows      []ReportRow `json:"rows"`
	Average   *float64    `json:"average,omitempty"`
}
