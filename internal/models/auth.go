package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PrincipalKind distinguishes the two authenticated principal types.
type PrincipalKind string

const (
	PrincipalStaff  PrincipalKind = "STAFF"
	PrincipalParent PrincipalKind = "PARENT"
)

// Principal is the explicit identity handed into every domain call.
// For parents it carries the materialized guardian-student link set;
// scope checks run against that set before any data access.
type Principal struct {
	Kind       PrincipalKind `json:"kind"`
	UserID     string        `json:"user_id,omitempty"`
	Role       UserRole      `json:"role,omitempty"`
	GuardianID string        `json:"guardian_id,omitempty"`
	StudentIDs []string      `json:"student_ids,omitempty"`
}

// IsStaff reports whether the principal has full staff access.
func (p *Principal) IsStaff() bool {
	return p != nil && p.Kind == PrincipalStaff
}

// CanAccessStudent reports whether the principal may read or write
// records belonging to the given student.
func (p *Principal) CanAccessStudent(studentID string) bool {
	if p == nil {
		return false
	}
	if p.Kind == PrincipalStaff {
		return true
	}
	for _, id := range p.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// JWTClaims carries identity information inside access tokens.
type JWTClaims struct {
	Kind       PrincipalKind `json:"kind"`
	UserID     string        `json:"user_id,omitempty"`
	Role       UserRole      `json:"role,omitempty"`
	GuardianID string        `json:"guardian_id,omitempty"`
	Email      string        `json:"email,omitempty"`
	FullName   string        `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// StaffLoginRequest is the staff credential payload.
type StaffLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// ParentLoginRequest is the parent portal credential payload. The secret is
// either the linked guardian's phone number or their portal password.
type ParentLoginRequest struct {
	AdmissionNumber string `json:"admission_number" validate:"required"`
	Secret          string `json:"secret" validate:"required"`
	IP              string `json:"-"`
	UserAgent       string `json:"-"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	ExpiresIn    int64         `json:"expires_in"`
	IssuedAt     time.Time     `json:"issued_at"`
	Kind         PrincipalKind `json:"kind"`
	FullName     string        `json:"full_name,omitempty"`
	StudentIDs   []string      `json:"student_ids,omitempty"`
}

// RefreshTokenRequest exchanges a refresh token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// ChangePasswordRequest rotates a staff password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// RefreshToken is a persisted rotating refresh token for staff sessions.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"-"`
	UserAgent string     `db:"user_agent" json:"-"`
}
