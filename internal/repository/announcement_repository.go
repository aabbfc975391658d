package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns announcements visible under the filter. A restricted
// filter matches ALL notices plus CLASS notices in filter.ClassLevels;
// with no levels it matches ALL notices only. An unrestricted filter is
// the staff view and sees every class.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	base := "FROM announcements"
	where := []string{"published_at <= NOW()"}
	args := []interface{}{}

	if filter.Restricted {
		if len(filter.ClassLevels) > 0 {
			where = append(where, fmt.Sprintf("(audience = 'ALL' OR class_level = ANY($%d))", len(args)+1))
			args = append(args, pq.Array(filter.ClassLevels))
		} else {
			where = append(where, "audience = 'ALL'")
		}
	}
	if filter.PinnedOnly {
		where = append(where, "pinned = true")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, title, body, audience, class_level, pinned, created_by, published_at, last_edited_at
%s WHERE %s
ORDER BY pinned DESC, published_at DESC
LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// FindByID fetches one announcement.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	const query = `SELECT id, title, body, audience, class_level, pinned, created_by, published_at, last_edited_at
        FROM announcements WHERE id = $1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create publishes a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	if announcement.PublishedAt.IsZero() {
		announcement.PublishedAt = time.Now().UTC()
	}
	const query = `INSERT INTO announcements (id, title, body, audience, class_level, pinned, created_by, published_at, last_edited_at)
        VALUES (:id, :title, :body, :audience, :class_level, :pinned, :created_by, :published_at, :last_edited_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update rewrites an announcement's content and stamps last_edited_at so
// the edit is visible rather than a silent rewrite.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	now := time.Now().UTC()
	announcement.LastEditedAt = &now
	const query = `UPDATE announcements SET title = :title, body = :body, audience = :audience,
        class_level = :class_level, pinned = :pinned, last_edited_at = :last_edited_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return nil
}
