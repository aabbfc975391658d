package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

// GradeRepository manages per-student exam scores.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert writes one grade for a (student, exam) pair. The unique index
// guarantees a single stored row; re-entry replaces the score.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) (*models.Grade, error) {
	now := time.Now().UTC()
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, exam_id, score, entered_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, exam_id)
DO UPDATE SET score = EXCLUDED.score, entered_by = EXCLUDED.entered_by, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, exam_id, score, entered_by, created_at, updated_at`
	var stored models.Grade
	if err := r.db.GetContext(ctx, &stored, query, grade.ID, grade.StudentID, grade.ExamID, grade.Score, grade.EnteredBy, grade.CreatedAt, grade.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert grade: %w", err)
	}
	return &stored, nil
}

// ReportRows returns a student's graded exams joined with exam metadata,
// ordered by exam date ascending.
func (r *GradeRepository) ReportRows(ctx context.Context, studentID string) ([]models.ReportRow, error) {
	const query = `SELECT g.exam_id, e.name AS exam_name, e.date AS exam_date, e.max_score, g.score
        FROM grades g
        JOIN exams e ON e.id = g.exam_id
        WHERE g.student_id = $1
        ORDER BY e.date ASC, e.name ASC`
	var rows []models.ReportRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("report rows: %w", err)
	}
	return rows, nil
}

// RecentForStudent returns the latest grades, newest exam first.
func (r *GradeRepository) RecentForStudent(ctx context.Context, studentID string, limit int) ([]models.ReportRow, error) {
	if limit <= 0 {
		limit = 6
	}
	query := fmt.Sprintf(`SELECT g.exam_id, e.name AS exam_name, e.date AS exam_date, e.max_score, g.score
        FROM grades g
        JOIN exams e ON e.id = g.exam_id
        WHERE g.student_id = $1
        ORDER BY e.date DESC LIMIT %d`, limit)
	var rows []models.ReportRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("recent grades: %w", err)
	}
	return rows, nil
}

// Delete removes one grade.
func (r *GradeRepository) Delete(ctx context.Context, studentID, examID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE student_id = $1 AND exam_id = $2`, studentID, examID); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
