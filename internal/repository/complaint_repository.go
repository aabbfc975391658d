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

// ComplaintRepository manages complaints and their append-only threads.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository constructs a ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// List returns complaints matching the filter, newest first. StudentIDs
// restricts results to the given students (parent scoping); empty means
// unrestricted (staff).
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	base := "FROM complaints"
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(filter.StudentIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("student_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.StudentIDs))
	}
	whereClause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, guardian_id, subject, body, status, created_at, updated_at
        %s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}
	return complaints, total, nil
}

// FindByID fetches one complaint.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	const query = `SELECT id, student_id, guardian_id, subject, body, status, created_at, updated_at
        FROM complaints WHERE id = $1`
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// Create inserts a new complaint in OPEN state.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	complaint.UpdatedAt = now
	if complaint.Status == "" {
		complaint.Status = models.ComplaintStatusOpen
	}
	const query = `INSERT INTO complaints (id, student_id, guardian_id, subject, body, status, created_at, updated_at)
        VALUES (:id, :student_id, :guardian_id, :subject, :body, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// UpdateStatus moves a complaint to a new lifecycle state. The legality of
// the transition is the service's concern.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error {
	const query = `UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	return nil
}

// Replies returns the ordered thread for one complaint. The sequence
// column breaks created_at ties so ordering is stable.
func (r *ComplaintRepository) Replies(ctx context.Context, complaintID string) ([]models.ComplaintReply, error) {
	const query = `SELECT id, complaint_id, author_kind, author_id, body, seq, created_at
        FROM complaint_replies WHERE complaint_id = $1 ORDER BY created_at ASC, seq ASC`
	var replies []models.ComplaintReply
	if err := r.db.SelectContext(ctx, &replies, query, complaintID); err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

// AppendReply adds one entry to the thread. Prior replies are never
// touched; seq comes from a sequence so insertion order is preserved.
func (r *ComplaintRepository) AppendReply(ctx context.Context, reply *models.ComplaintReply) (*models.ComplaintReply, error) {
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO complaint_replies (id, complaint_id, author_kind, author_id, body, seq, created_at)
        VALUES ($1, $2, $3, $4, $5, nextval('complaint_reply_seq'), $6)
        RETURNING id, complaint_id, author_kind, author_id, body, seq, created_at`
	var stored models.ComplaintReply
	if err := r.db.GetContext(ctx, &stored, query, reply.ID, reply.ComplaintID, reply.AuthorKind, reply.AuthorID, reply.Body, reply.CreatedAt); err != nil {
		return nil, fmt.Errorf("append reply: %w", err)
	}
	return &stored, nil
}

// CountByStatus returns how many complaints sit in the given state.
func (r *ComplaintRepository) CountByStatus(ctx context.Context, status models.ComplaintStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM complaints WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count complaints: %w", err)
	}
	return count, nil
}
