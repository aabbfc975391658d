package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

// GuardianRepository manages guardians and the guardian-student link table.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs a GuardianRepository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// List returns guardians matching the filter.
func (r *GuardianRepository) List(ctx context.Context, filter models.GuardianFilter) ([]models.Guardian, int, error) {
	base := "FROM guardians g"
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(g.first_name) LIKE $%d OR LOWER(g.last_name) LIKE $%d OR g.phone LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT g.id, g.first_name, g.last_name, g.email, g.phone, g.password_hash, g.created_at, g.updated_at
        %s ORDER BY g.last_name ASC, g.first_name ASC LIMIT %d OFFSET %d`, base, size, offset)

	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list guardians: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count guardians: %w", err)
	}
	return guardians, total, nil
}

// FindByID fetches a guardian by ID.
func (r *GuardianRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	const query = `SELECT id, first_name, last_name, email, phone, password_hash, created_at, updated_at
        FROM guardians WHERE id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// Create inserts a guardian.
func (r *GuardianRepository) Create(ctx context.Context, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = now
	}
	guardian.UpdatedAt = now
	const query = `INSERT INTO guardians (id, first_name, last_name, email, phone, password_hash, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

// Update modifies an existing guardian.
func (r *GuardianRepository) Update(ctx context.Context, guardian *models.Guardian) error {
	guardian.UpdatedAt = time.Now().UTC()
	const query = `UPDATE guardians SET first_name = :first_name, last_name = :last_name, email = :email,
        phone = :phone, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("update guardian: %w", err)
	}
	return nil
}

// ListByStudent returns the guardians linked to a student.
func (r *GuardianRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Guardian, error) {
	const query = `SELECT g.id, g.first_name, g.last_name, g.email, g.phone, g.password_hash, g.created_at, g.updated_at
        FROM guardians g
        JOIN guardian_students gs ON gs.guardian_id = g.id
        WHERE gs.student_id = $1
        ORDER BY gs.created_at ASC`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, studentID); err != nil {
		return nil, fmt.Errorf("list guardians for student: %w", err)
	}
	return guardians, nil
}

// StudentIDs returns the link set for one guardian, the scope every parent
// principal is confined to.
func (r *GuardianRepository) StudentIDs(ctx context.Context, guardianID string) ([]string, error) {
	var ids []string
	const query = `SELECT student_id FROM guardian_students WHERE guardian_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &ids, query, guardianID); err != nil {
		return nil, fmt.Errorf("list linked students: %w", err)
	}
	return ids, nil
}

// Link attaches a guardian to a student, idempotently.
func (r *GuardianRepository) Link(ctx context.Context, link *models.GuardianStudentLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO guardian_students (guardian_id, student_id, relation, created_at)
        VALUES (:guardian_id, :student_id, :relation, :created_at)
        ON CONFLICT (guardian_id, student_id) DO UPDATE SET relation = EXCLUDED.relation`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("link guardian: %w", err)
	}
	return nil
}

// Unlink detaches a guardian from a student.
func (r *GuardianRepository) Unlink(ctx context.Context, guardianID, studentID string) error {
	const query = `DELETE FROM guardian_students WHERE guardian_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, guardianID, studentID); err != nil {
		return fmt.Errorf("unlink guardian: %w", err)
	}
	return nil
}

// CountLinksForStudent returns how many guardians a student has.
func (r *GuardianRepository) CountLinksForStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM guardian_students WHERE student_id = $1`
	if err := r.db.GetContext(ctx, &count, query, studentID); err != nil {
		return 0, fmt.Errorf("count guardian links: %w", err)
	}
	return count, nil
}
