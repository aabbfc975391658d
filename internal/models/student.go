package models

import "time"

// Student is the canonical learner record, keyed by admission number.
// The admission number is immutable after creation and doubles as the
// parent-portal login key.
type Student struct {
	ID              string    `db:"id" json:"id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	DateOfBirth     time.Time `db:"date_of_birth" json:"date_of_birth"`
	ClassLevel      string    `db:"class_level" json:"class_level"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the student's name parts.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	ClassLevel string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// StudentDetail extends the student row with guardian context.
type StudentDetail struct {
	Student
	Guardians []Guardian `json:"guardians,omitempty"`
}

// StudentCreateRequest registers a new student.
type StudentCreateRequest struct {
	AdmissionNumber string    `json:"admission_number" validate:"required,max=32"`
	FirstName       string    `json:"first_name" validate:"required,max=100"`
	LastName        string    `json:"last_name" validate:"max=100"`
	DateOfBirth     time.Time `json:"date_of_birth" validate:"required"`
	ClassLevel      string    `json:"class_level" validate:"required,max=32"`
}

// StudentUpdateRequest changes mutable student fields. The admission
// number is not part of the payload; it cannot change once assigned.
type StudentUpdateRequest struct {
	FirstName   string    `json:"first_name" validate:"required,max=100"`
	LastName    string    `json:"last_name" validate:"max=100"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
	ClassLevel  string    `json:"class_level" validate:"required,max=32"`
	Active      *bool     `json:"active,omitempty"`
}
