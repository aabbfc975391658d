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

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type announcementStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AnnouncementService publishes notices to the whole school or to one
// class level. Parents only see ALL notices plus CLASS notices matching
// a linked student's class.
type AnnouncementService struct {
	announcements announcementRepository
	students      announcementStudentReader
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService instance.
func NewAnnouncementService(announcements announcementRepository, students announcementStudentReader, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AnnouncementService{announcements: announcements, students: students, validator: validate, logger: logger}
}

// List returns announcements visible to the principal. For parents the
// class filter is derived from their linked students, never from the
// request.
func (s *AnnouncementService) List(ctx context.Context, principal *models.Principal, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	if !principal.IsStaff() {
		levels, err := s.linkedClassLevels(ctx, principal)
		if err != nil {
			return nil, 0, err
		}
		filter.Restricted = true
		filter.ClassLevels = levels
	}

	announcements, total, err := s.announcements.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return announcements, total, nil
}

// Get returns one announcement if the principal's audience includes it.
func (s *AnnouncementService) Get(ctx context.Context, principal *models.Principal, id string) (*models.Announcement, error) {
	announcement, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	if !principal.IsStaff() && announcement.Audience == models.AnnouncementAudienceClass {
		levels, err := s.linkedClassLevels(ctx, principal)
		if err != nil {
			return nil, err
		}
		visible := false
		for _, level := range levels {
			if announcement.ClassLevel != nil && *announcement.ClassLevel == level {
				visible = true
				break
			}
		}
		if !visible {
			return nil, appErrors.Clone(appErrors.ErrScopeViolation, "announcement is outside your scope")
		}
	}

	return announcement, nil
}

// Publish creates an announcement.
func (s *AnnouncementService) Publish(ctx context.Context, createdBy string, req models.AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	announcement := &models.Announcement{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Body:        req.Body,
		Audience:    req.Audience,
		ClassLevel:  req.ClassLevel,
		Pinned:      req.Pinned,
		CreatedBy:   createdBy,
		PublishedAt: time.Now().UTC(),
	}
	if err := s.announcements.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish announcement")
	}

	s.logger.Info("announcement published",
		zap.String("announcement_id", announcement.ID),
		zap.String("audience", string(announcement.Audience)))
	return announcement, nil
}

// Edit rewrites an announcement and stamps LastEditedAt so readers can
// tell the notice changed after publication.
func (s *AnnouncementService) Edit(ctx context.Context, id string, req models.AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	announcement, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	announcement.Title = req.Title
	announcement.Body = req.Body
	announcement.Audience = req.Audience
	announcement.ClassLevel = req.ClassLevel
	announcement.Pinned = req.Pinned
	editedAt := time.Now().UTC()
	announcement.LastEditedAt = &editedAt

	if err := s.announcements.Update(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if _, err := s.announcements.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.announcements.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

func (s *AnnouncementService) validateRequest(req models.AnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if !req.Audience.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported audience")
	}
	if req.Audience == models.AnnouncementAudienceClass && (req.ClassLevel == nil || *req.ClassLevel == "") {
		return appErrors.Clone(appErrors.ErrValidation, "class_level is required for CLASS audience")
	}
	if req.Audience == models.AnnouncementAudienceAll && req.ClassLevel != nil {
		return appErrors.Clone(appErrors.ErrValidation, "class_level is not allowed for ALL audience")
	}
	return nil
}

func (s *AnnouncementService) linkedClassLevels(ctx context.Context, principal *models.Principal) ([]string, error) {
	seen := make(map[string]bool)
	levels := make([]string, 0, len(principal.StudentIDs))
	for _, studentID := range principal.StudentIDs {
		student, err := s.students.FindByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load linked student")
		}
		if !seen[student.ClassLevel] {
			seen[student.ClassLevel] = true
			levels = append(levels, student.ClassLevel)
		}
	}
	return levels, nil
}
