package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	BulkUpsert(ctx context.Context, records []models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
	Summary(ctx context.Context, studentID string, from, to *time.Time) (*models.AttendanceSummary, error)
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AttendanceService manages daily attendance marks.
type AttendanceService struct {
	attendance attendanceRepository
	students   attendanceStudentReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(attendance attendanceRepository, students attendanceStudentReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{attendance: attendance, students: students, validator: validate, logger: logger}
}

// Mark records one student's status for one day. Marking the same day
// again overwrites the previous status.
func (s *AttendanceService) Mark(ctx context.Context, markedBy string, req models.AttendanceMarkRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	now := time.Now().UTC()
	record := &models.Attendance{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		Date:      truncateToDay(req.Date),
		Status:    req.Status,
		Notes:     req.Notes,
		MarkedBy:  markedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	saved, err := s.attendance.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return saved, nil
}

// BulkMark records a batch of marks for one day atomically. Either all
// marks land or none do; a bad row fails the whole batch.
func (s *AttendanceService) BulkMark(ctx context.Context, markedBy string, req models.AttendanceBulkRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
	}

	date := truncateToDay(req.Date)
	now := time.Now().UTC()
	records := make([]models.Attendance, 0, len(req.Marks))
	seen := make(map[string]bool, len(req.Marks))
	for _, mark := range req.Marks {
		if !mark.Status.Valid() {
			return 0, appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status")
		}
		if seen[mark.StudentID] {
			return 0, appErrors.Clone(appErrors.ErrValidation, "duplicate student in batch")
		}
		seen[mark.StudentID] = true
		records = append(records, models.Attendance{
			ID:        uuid.NewString(),
			StudentID: mark.StudentID,
			Date:      date,
			Status:    mark.Status,
			Notes:     mark.Notes,
			MarkedBy:  markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.attendance.BulkUpsert(ctx, records); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance batch")
	}

	s.logger.Info("attendance batch recorded",
		zap.Time("date", date),
		zap.Int("count", len(records)))
	return len(records), nil
}

// List returns attendance records for one student. Scope is checked
// before any data access.
func (s *AttendanceService) List(ctx context.Context, principal *models.Principal, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	if filter.StudentID == "" {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if !principal.CanAccessStudent(filter.StudentID) {
		return nil, 0, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 31
	}

	records, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, total, nil
}

// Summary aggregates a student's marks over an optional date range.
// PercentPresent stays nil when no days were marked at all.
func (s *AttendanceService) Summary(ctx context.Context, principal *models.Principal, studentID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	if !principal.CanAccessStudent(studentID) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}

	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	summary, err := s.attendance.Summary(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize attendance")
	}
	return summary, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
