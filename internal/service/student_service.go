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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByAdmissionNumber(ctx context.Context, admissionNumber string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
	HasDependentRecords(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	ClassLevels(ctx context.Context) ([]string, error)
}

type studentGuardianReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Guardian, error)
}

// StudentService manages the student registry.
type StudentService struct {
	students  studentRepository
	guardians studentGuardianReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(students studentRepository, guardians studentGuardianReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{students: students, guardians: guardians, validator: validate, logger: logger}
}

// List returns students matching the filter. Parents see only their
// linked students regardless of filter values.
func (s *StudentService) List(ctx context.Context, principal *models.Principal, filter models.StudentFilter) ([]models.Student, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	if !principal.IsStaff() {
		out := make([]models.Student, 0, len(principal.StudentIDs))
		for _, id := range principal.StudentIDs {
			student, err := s.students.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue
				}
				return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load linked student")
			}
			out = append(out, *student)
		}
		return out, len(out), nil
	}

	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get returns one student with linked guardians. Scope is checked before
// the record is touched.
func (s *StudentService) Get(ctx context.Context, principal *models.Principal, id string) (*models.StudentDetail, error) {
	if !principal.CanAccessStudent(id) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	guardians, err := s.guardians.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}

	return &models.StudentDetail{Student: *student, Guardians: guardians}, nil
}

// Create registers a student. Admission numbers are unique; a duplicate
// is a conflict, not a validation error.
func (s *StudentService) Create(ctx context.Context, req models.StudentCreateRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.students.ExistsByAdmissionNumber(ctx, req.AdmissionNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number is already in use")
	}

	now := time.Now().UTC()
	student := &models.Student{
		ID:              uuid.NewString(),
		AdmissionNumber: req.AdmissionNumber,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		DateOfBirth:     req.DateOfBirth,
		ClassLevel:      req.ClassLevel,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.String("admission_number", student.AdmissionNumber))

	return student, nil
}

// Update changes mutable student fields. The admission number never
// changes after registration.
func (s *StudentService) Update(ctx context.Context, id string, req models.StudentUpdateRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.DateOfBirth = req.DateOfBirth
	student.ClassLevel = req.ClassLevel
	if req.Active != nil {
		student.Active = *req.Active
	}
	student.UpdatedAt = time.Now().UTC()

	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate retires a student without touching their history.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.students.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// Delete removes a student that has no dependent records. Students with
// payments, grades, attendance or complaints cannot be deleted; the
// check is repeated inside the delete transaction so a racing write
// cannot slip through.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	hasRecords, err := s.students.HasDependentRecords(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check dependent records")
	}
	if hasRecords {
		return appErrors.Clone(appErrors.ErrConflict, "student has historical records; deactivate instead")
	}

	blocked, err := s.students.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if blocked {
		return appErrors.Clone(appErrors.ErrConflict, "student has historical records; deactivate instead")
	}

	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// ClassLevels lists the distinct class levels in use.
func (s *StudentService) ClassLevels(ctx context.Context) ([]string, error) {
	levels, err := s.students.ClassLevels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class levels")
	}
	return levels, nil
}
