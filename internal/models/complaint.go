package models

import "time"

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "OPEN"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
)

// Valid returns true when the status is a supported value.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusOpen, ComplaintStatusInProgress, ComplaintStatusResolved:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the forward-only state machine permits
// moving to next. The one backward edge, RESOLVED to OPEN, is a staff
// reopen and is gated separately by the caller.
func (s ComplaintStatus) CanTransitionTo(next ComplaintStatus) bool {
	switch s {
	case ComplaintStatusOpen:
		return next == ComplaintStatusInProgress
	case ComplaintStatusInProgress:
		return next == ComplaintStatusResolved
	case ComplaintStatusResolved:
		return next == ComplaintStatusOpen
	default:
		return false
	}
}

// AuthorKind attributes a complaint or reply to a principal type.
type AuthorKind string

const (
	AuthorStaff    AuthorKind = "STAFF"
	AuthorGuardian AuthorKind = "GUARDIAN"
)

// Complaint is a threaded issue raised about one student.
type Complaint struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	GuardianID *string         `db:"guardian_id" json:"guardian_id,omitempty"`
	Subject    string          `db:"subject" json:"subject"`
	Body       string          `db:"body" json:"body"`
	Status     ComplaintStatus `db:"status" json:"status"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ComplaintReply is one append-only entry in a complaint thread, ordered
// by creation time with the insertion sequence as tie-breaker.
type ComplaintReply struct {
	ID          string     `db:"id" json:"id"`
	ComplaintID string     `db:"complaint_id" json:"complaint_id"`
	AuthorKind  AuthorKind `db:"author_kind" json:"author_kind"`
	AuthorID    string     `db:"author_id" json:"author_id"`
	Body        string     `db:"body" json:"body"`
	Seq         int64      `db:"seq" json:"seq"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// ComplaintDetail bundles a complaint with its ordered thread.
type ComplaintDetail struct {
	Complaint
	Replies []ComplaintReply `json:"replies"`
}

// ComplaintCreateRequest opens a complaint about one student.
type ComplaintCreateRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Body      string `json:"body" validate:"required"`
}

// ComplaintReplyRequest appends one entry to a complaint thread.
type ComplaintReplyRequest struct {
	Body string `json:"body" validate:"required"`
}

// ComplaintStatusRequest moves a complaint to a new lifecycle state.
type ComplaintStatusRequest struct {
	Status ComplaintStatus `json:"status" validate:"required"`
}

// ComplaintFilter scopes complaint listing.
type ComplaintFilter struct {
	Status     *ComplaintStatus
	StudentIDs []string
	Page       int
	PageSize   int
}
