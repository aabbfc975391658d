package models

import "time"

// Guardian is a parent or caretaker with portal access to linked students.
// PasswordHash is optional: when unset the guardian authenticates with
// their phone number as the portal secret.
type Guardian struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GuardianStudentLink joins guardians to students, many-to-many.
type GuardianStudentLink struct {
	GuardianID string    `db:"guardian_id" json:"guardian_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Relation   string    `db:"relation" json:"relation,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// GuardianFilter scopes guardian listing.
type GuardianFilter struct {
	Search   string
	Page     int
	PageSize int
}

// GuardianCreateRequest registers a guardian.
type GuardianCreateRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"required,max=32"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// GuardianUpdateRequest changes guardian contact details.
type GuardianUpdateRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"required,max=32"`
}

// GuardianLinkRequest links a guardian to a student.
type GuardianLinkRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Relation  string `json:"relation" validate:"max=50"`
}

// GuardianPasswordRequest sets a guardian's portal password, replacing
// the phone-number fallback secret.
type GuardianPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}
