package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

const adminDashboardCacheKey = "dashboard:admin"

type statsRepository interface {
	Counts(ctx context.Context) (*models.AdminDashboard, error)
}

type dashboardStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type dashboardFeeReader interface {
	Balance(ctx context.Context, studentID, classLevel string) (*models.FeeBalance, error)
	RecentPayments(ctx context.Context, studentID string, limit int) ([]models.Payment, error)
}

type dashboardGradeReader interface {
	RecentForStudent(ctx context.Context, studentID string, limit int) ([]models.ReportRow, error)
}

type dashboardAttendanceReader interface {
	Summary(ctx context.Context, studentID string, from, to *time.Time) (*models.AttendanceSummary, error)
}

type dashboardAnnouncementReader interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
}

// DashboardService assembles the staff and parent landing pages. The
// staff counts are cached in Redis for a short TTL; the parent view is
// always assembled fresh because it is per child.
type DashboardService struct {
	stats         statsRepository
	students      dashboardStudentReader
	fees          dashboardFeeReader
	grades        dashboardGradeReader
	attendance    dashboardAttendanceReader
	announcements dashboardAnnouncementReader
	redis         *redis.Client
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewDashboardService constructs a DashboardService instance. The redis
// client may be nil, in which case caching is skipped.
func NewDashboardService(stats statsRepository, students dashboardStudentReader, fees dashboardFeeReader, grades dashboardGradeReader, attendance dashboardAttendanceReader, announcements dashboardAnnouncementReader, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &DashboardService{
		stats:         stats,
		students:      students,
		fees:          fees,
		grades:        grades,
		attendance:    attendance,
		announcements: announcements,
		redis:         redisClient,
		cacheTTL:      cacheTTL,
		logger:        logger,
	}
}

// Admin returns the staff dashboard counts, served from cache when
// fresh.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, adminDashboardCacheKey).Bytes()
		if err == nil {
			var dashboard models.AdminDashboard
			if json.Unmarshal(cached, &dashboard) == nil {
				return &dashboard, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	dashboard, err := s.stats.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard counts")
	}
	dashboard.GeneratedAt = time.Now().UTC()

	if s.redis != nil {
		if payload, err := json.Marshal(dashboard); err == nil {
			if err := s.redis.Set(ctx, adminDashboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}

	return dashboard, nil
}

// InvalidateAdmin drops the cached staff dashboard after a write that
// changes the counts.
func (s *DashboardService) InvalidateAdmin(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, adminDashboardCacheKey).Err(); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// Parent assembles the portal view for one linked child: fee position,
// recent payments and grades, attendance summary and pinned notices.
func (s *DashboardService) Parent(ctx context.Context, principal *models.Principal, studentID string) (*models.ParentDashboard, error) {
	if !principal.CanAccessStudent(studentID) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	balance, err := s.fees.Balance(ctx, studentID, student.ClassLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute balance")
	}

	payments, err := s.fees.RecentPayments(ctx, studentID, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent payments")
	}

	grades, err := s.grades.RecentForStudent(ctx, studentID, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent grades")
	}
	for i := range grades {
		if grades[i].MaxScore > 0 {
			grades[i].Percentage = grades[i].Score / grades[i].MaxScore * 100
		}
	}

	summary, err := s.attendance.Summary(ctx, studentID, nil, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize attendance")
	}

	pinned, _, err := s.announcements.List(ctx, models.AnnouncementFilter{
		Restricted:  true,
		ClassLevels: []string{student.ClassLevel},
		PinnedOnly:  true,
		Page:        1,
		PageSize:    5,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pinned announcements")
	}

	return &models.ParentDashboard{
		Student:             *student,
		Balance:             *balance,
		RecentPayments:      payments,
		RecentGrades:        grades,
		AttendanceSummary:   summary,
		PinnedAnnouncements: pinned,
	}, nil
}
