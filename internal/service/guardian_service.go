package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type guardianRepository interface {
	List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, int, error)
	FindByID(ctx context.Context, id string) (*models.Guardian, error)
	Create(ctx context.Context, guardian *models.Guardian) error
	Update(ctx context.Context, guardian *models.Guardian) error
	Link(ctx context.Context, link *models.GuardianStudentLink) error
	Unlink(ctx context.Context, guardianID, studentID string) error
	CountLinksForStudent(ctx context.Context, studentID string) (int, error)
	StudentIDs(ctx context.Context, guardianID string) ([]string, error)
}

type guardianStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// GuardianService manages guardians and their student links. The links
// are the parent-portal scope set, so link changes take effect on the
// parent's next request.
type GuardianService struct {
	guardians guardianRepository
	students  guardianStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGuardianService constructs a GuardianService instance.
func NewGuardianService(guardians guardianRepository, students guardianStudentReader, validate *validator.Validate, logger *zap.Logger) *GuardianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GuardianService{guardians: guardians, students: students, validator: validate, logger: logger}
}

// List returns guardians matching the filter.
func (s *GuardianService) List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	guardians, total, err := s.guardians.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list guardians")
	}
	return guardians, total, nil
}

// Get returns one guardian. Parents may only fetch their own record.
func (s *GuardianService) Get(ctx context.Context, principal *models.Principal, id string) (*models.Guardian, error) {
	if !principal.IsStaff() && principal.GuardianID != id {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "guardian record is outside your scope")
	}
	guardian, err := s.guardians.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}
	return guardian, nil
}

// Create registers a guardian. A portal password is optional; without
// one the stored phone number acts as the login secret.
func (s *GuardianService) Create(ctx context.Context, req models.GuardianCreateRequest) (*models.Guardian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guardian payload")
	}

	now := time.Now().UTC()
	guardian := &models.Guardian{
		ID:        uuid.NewString(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		hashed := string(hash)
		guardian.PasswordHash = &hashed
	}

	if err := s.guardians.Create(ctx, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guardian")
	}

	s.logger.Info("guardian registered", zap.String("guardian_id", guardian.ID))
	return guardian, nil
}

// Update changes guardian contact details.
func (s *GuardianService) Update(ctx context.Context, id string, req models.GuardianUpdateRequest) (*models.Guardian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guardian payload")
	}

	guardian, err := s.guardians.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}

	guardian.FirstName = req.FirstName
	guardian.LastName = req.LastName
	guardian.Email = req.Email
	guardian.Phone = req.Phone
	guardian.UpdatedAt = time.Now().UTC()

	if err := s.guardians.Update(ctx, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update guardian")
	}
	return guardian, nil
}

// SetPassword sets a guardian's portal password. Staff may set any
// guardian's password; a parent may only change their own.
func (s *GuardianService) SetPassword(ctx context.Context, principal *models.Principal, id string, req models.GuardianPasswordRequest) error {
	if !principal.IsStaff() && principal.GuardianID != id {
		return appErrors.Clone(appErrors.ErrScopeViolation, "guardian record is outside your scope")
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	guardian, err := s.guardians.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	hashed := string(hash)
	guardian.PasswordHash = &hashed
	guardian.UpdatedAt = time.Now().UTC()

	if err := s.guardians.Update(ctx, guardian); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update guardian")
	}
	return nil
}

// Link attaches a guardian to a student. Re-linking an existing pair
// refreshes the relation label instead of failing.
func (s *GuardianService) Link(ctx context.Context, guardianID string, req models.GuardianLinkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}

	if _, err := s.guardians.FindByID(ctx, guardianID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	link := &models.GuardianStudentLink{
		GuardianID: guardianID,
		StudentID:  req.StudentID,
		Relation:   req.Relation,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.guardians.Link(ctx, link); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link guardian")
	}

	s.logger.Info("guardian linked",
		zap.String("guardian_id", guardianID),
		zap.String("student_id", req.StudentID))
	return nil
}

// Unlink detaches a guardian from a student. The last remaining link
// for a student cannot be removed; every student keeps at least one
// portal-capable guardian.
func (s *GuardianService) Unlink(ctx context.Context, guardianID, studentID string) error {
	count, err := s.guardians.CountLinksForStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count guardian links")
	}
	if count == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "link not found")
	}
	if count == 1 {
		return appErrors.Clone(appErrors.ErrConflict, "cannot remove the last guardian link for a student")
	}

	if err := s.guardians.Unlink(ctx, guardianID, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink guardian")
	}

	s.logger.Info("guardian unlinked",
		zap.String("guardian_id", guardianID),
		zap.String("student_id", studentID))
	return nil
}
