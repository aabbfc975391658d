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

type complaintRepository interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error)
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	Create(ctx context.Context, complaint *models.Complaint) error
	UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error
	Replies(ctx context.Context, complaintID string) ([]models.ComplaintReply, error)
	AppendReply(ctx context.Context, reply *models.ComplaintReply) (*models.ComplaintReply, error)
}

type complaintStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// ComplaintService manages threaded complaints and their lifecycle.
// Status moves OPEN to IN_PROGRESS to RESOLVED; only staff change
// status, and only staff may reopen a resolved thread.
type ComplaintService struct {
	complaints complaintRepository
	students   complaintStudentReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewComplaintService constructs a ComplaintService instance.
func NewComplaintService(complaints complaintRepository, students complaintStudentReader, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ComplaintService{complaints: complaints, students: students, validator: validate, logger: logger}
}

// List returns complaints visible to the principal. Parents see only
// complaints about their linked students.
func (s *ComplaintService) List(ctx context.Context, principal *models.Principal, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	if !principal.IsStaff() {
		if len(principal.StudentIDs) == 0 {
			return []models.Complaint{}, 0, nil
		}
		filter.StudentIDs = principal.StudentIDs
	}

	complaints, total, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}
	return complaints, total, nil
}

// Get returns one complaint with its ordered thread.
func (s *ComplaintService) Get(ctx context.Context, principal *models.Principal, id string) (*models.ComplaintDetail, error) {
	complaint, err := s.findScoped(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	replies, err := s.complaints.Replies(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load replies")
	}

	return &models.ComplaintDetail{Complaint: *complaint, Replies: replies}, nil
}

// Create opens a complaint about one student. Parents may only raise
// complaints about their linked students.
func (s *ComplaintService) Create(ctx context.Context, principal *models.Principal, req models.ComplaintCreateRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}
	if !principal.CanAccessStudent(req.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	now := time.Now().UTC()
	complaint := &models.Complaint{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		Subject:   req.Subject,
		Body:      req.Body,
		Status:    models.ComplaintStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if principal.Kind == models.PrincipalParent {
		guardianID := principal.GuardianID
		complaint.GuardianID = &guardianID
	}

	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}

	s.logger.Info("complaint opened",
		zap.String("complaint_id", complaint.ID),
		zap.String("student_id", complaint.StudentID))
	return complaint, nil
}

// Reply appends one entry to a complaint thread. Replies are append
// only; nothing in a thread is ever edited or removed.
func (s *ComplaintService) Reply(ctx context.Context, principal *models.Principal, complaintID string, req models.ComplaintReplyRequest) (*models.ComplaintReply, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reply payload")
	}

	if _, err := s.findScoped(ctx, principal, complaintID); err != nil {
		return nil, err
	}

	reply := &models.ComplaintReply{
		ID:          uuid.NewString(),
		ComplaintID: complaintID,
		Body:        req.Body,
		CreatedAt:   time.Now().UTC(),
	}
	if principal.IsStaff() {
		reply.AuthorKind = models.AuthorStaff
		reply.AuthorID = principal.UserID
	} else {
		reply.AuthorKind = models.AuthorGuardian
		reply.AuthorID = principal.GuardianID
	}

	saved, err := s.complaints.AppendReply(ctx, reply)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append reply")
	}
	return saved, nil
}

// ChangeStatus moves a complaint along its lifecycle. Only staff may
// change status; invalid transitions are conflicts, and the backward
// RESOLVED to OPEN edge is the staff reopen.
func (s *ComplaintService) ChangeStatus(ctx context.Context, principal *models.Principal, complaintID string, req models.ComplaintStatusRequest) (*models.Complaint, error) {
	if !principal.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff may change complaint status")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported complaint status")
	}

	complaint, err := s.complaints.FindByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}

	if complaint.Status == req.Status {
		return complaint, nil
	}
	if !complaint.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "transition not allowed from current status")
	}

	if err := s.complaints.UpdateStatus(ctx, complaintID, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}

	complaint.Status = req.Status
	complaint.UpdatedAt = time.Now().UTC()

	s.logger.Info("complaint status changed",
		zap.String("complaint_id", complaintID),
		zap.String("status", string(req.Status)))
	return complaint, nil
}

func (s *ComplaintService) findScoped(ctx context.Context, principal *models.Principal, id string) (*models.Complaint, error) {
	complaint, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}
	if !principal.CanAccessStudent(complaint.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "complaint is outside your scope")
	}
	return complaint, nil
}
