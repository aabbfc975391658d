package models

import "time"

// AdminDashboard holds the entity counts shown on the staff landing page.
type AdminDashboard struct {
	Students       int       `json:"students"`
	FeeStructures  int       `json:"fee_structures"`
	Exams          int       `json:"exams"`
	Announcements  int       `json:"announcements"`
	OpenComplaints int       `json:"open_complaints"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// ParentDashboard summarises one child's standing for the parent portal.
type ParentDashboard struct {
	Student             Student            `json:"student"`
	Balance             FeeBalance         `json:"balance"`
	RecentPayments      []Payment          `json:"recent_payments"`
	RecentGrades        []ReportRow        `json:"recent_grades"`
	AttendanceSummary   *AttendanceSummary `json:"attendance_summary"`
	PinnedAnnouncements []Announcement     `json:"pinned_announcements"`
}
