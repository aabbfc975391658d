package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.ClassLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_level = $%d", len(args)+1))
		args = append(args, filter.ClassLevel)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.admission_number) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":        "s.last_name",
		"admission_number": "s.admission_number",
		"class_level":      "s.class_level",
		"created_at":       "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.admission_number, s.first_name, s.last_name, s.date_of_birth, s.class_level, s.active, s.created_at, s.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, admission_number, first_name, last_name, date_of_birth, class_level, active, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByAdmissionNumber fetches a student by the portal login key.
func (r *StudentRepository) FindByAdmissionNumber(ctx context.Context, admissionNumber string) (*models.Student, error) {
	const query = `SELECT id, admission_number, first_name, last_name, date_of_birth, class_level, active, created_at, updated_at
        FROM students WHERE admission_number = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, admissionNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByAdmissionNumber checks uniqueness optionally excluding an ID.
func (r *StudentRepository) ExistsByAdmissionNumber(ctx context.Context, admissionNumber string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE admission_number = $1"
	args := []interface{}{admissionNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, admission_number, first_name, last_name, date_of_birth, class_level, active, created_at, updated_at)
        VALUES (:id, :admission_number, :first_name, :last_name, :date_of_birth, :class_level, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. The admission number column is
// deliberately absent: it is immutable after creation.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth,
        class_level = :class_level, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

// HasDependentRecords reports whether financial, academic, attendance or
// complaint history references the student.
func (r *StudentRepository) HasDependentRecords(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM payments WHERE student_id = $1)
        OR EXISTS(SELECT 1 FROM grades WHERE student_id = $1)
        OR EXISTS(SELECT 1 FROM attendance_records WHERE student_id = $1)
        OR EXISTS(SELECT 1 FROM complaints WHERE student_id = $1)`
	var has bool
	if err := r.db.GetContext(ctx, &has, query, id); err != nil {
		return false, fmt.Errorf("check dependent records: %w", err)
	}
	return has, nil
}

// Delete removes a student and their guardian links in one transaction,
// re-checking dependent history inside the transaction so the block-delete
// policy cannot race a concurrent payment or grade write.
func (r *StudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete student: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const depQuery = `SELECT EXISTS(SELECT 1 FROM payments WHERE student_id = $1)
        OR EXISTS(SELECT 1 FROM grades WHERE student_id = $1)
        OR EXISTS(SELECT 1 FROM attendance_records WHERE student_id = $1)
        OR EXISTS(SELECT 1 FROM complaints WHERE student_id = $1)`
	var has bool
	if err := tx.GetContext(ctx, &has, depQuery, id); err != nil {
		return false, fmt.Errorf("check dependent records: %w", err)
	}
	if has {
		return true, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM guardian_students WHERE student_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete guardian links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete student: %w", err)
	}
	commit = true
	return false, nil
}

// ClassLevels returns the distinct class levels in use.
func (r *StudentRepository) ClassLevels(ctx context.Context) ([]string, error) {
	var levels []string
	if err := r.db.SelectContext(ctx, &levels, `SELECT DISTINCT class_level FROM students ORDER BY class_level`); err != nil {
		return nil, fmt.Errorf("list class levels: %w", err)
	}
	return levels, nil
}
