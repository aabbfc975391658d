package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// Attendance is one student's mark for one calendar day. Unique per
// (student, date); re-marking the same day overwrites.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listing.
type AttendanceFilter struct {
	StudentID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// AttendanceMarkRequest marks one student for one day.
type AttendanceMarkRequest struct {
	StudentID string           `json:"student_id" validate:"required"`
	Date      time.Time        `json:"date" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	Notes     *string          `json:"notes,omitempty"`
}

// AttendanceBulkRequest marks a batch of students for one day, applied
// atomically.
type AttendanceBulkRequest struct {
	Date  time.Time               `json:"date" validate:"required"`
	Marks []AttendanceMarkRequest `json:"marks" validate:"required,min=1,dive"`
}

// AttendanceSummary counts marks by status over a date range. Days with no
// record are excluded entirely: PercentPresent is nil when Total is zero,
// an explicit no-data state rather than 0%.
type AttendanceSummary struct {
	StudentID      string   `json:"student_id"`
	Present        int      `json:"present"`
	Absent         int      `json:"absent"`
	Late           int      `json:"late"`
	Excused        int      `json:"excused"`
	Total          int      `json:"total"`
	PercentPresent *float64 `json:"percent_present,omitempty"`
}
