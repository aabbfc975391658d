package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

// FeeRepository manages fee structures and the append-only payment ledger.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// UpsertStructure inserts or updates the structure for one
// (class_level, period) pair. The unique index keeps the at-most-one
// invariant; re-setting an existing pair overwrites its amount.
func (r *FeeRepository) UpsertStructure(ctx context.Context, structure *models.FeeStructure) (*models.FeeStructure, error) {
	now := time.Now().UTC()
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	if structure.CreatedAt.IsZero() {
		structure.CreatedAt = now
	}
	structure.UpdatedAt = now
	const query = `INSERT INTO fee_structures (id, class_level, period, amount, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (class_level, period)
DO UPDATE SET amount = EXCLUDED.amount, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
RETURNING id, class_level, period, amount, active, created_at, updated_at`
	var stored models.FeeStructure
	if err := r.db.GetContext(ctx, &stored, query, structure.ID, structure.ClassLevel, structure.Period, structure.Amount, structure.Active, structure.CreatedAt, structure.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert fee structure: %w", err)
	}
	return &stored, nil
}

// ListStructures returns fee structures, optionally for one class level.
func (r *FeeRepository) ListStructures(ctx context.Context, classLevel string) ([]models.FeeStructure, error) {
	query := `SELECT id, class_level, period, amount, active, created_at, updated_at FROM fee_structures`
	args := []interface{}{}
	if classLevel != "" {
		query += ` WHERE class_level = $1`
		args = append(args, classLevel)
	}
	query += ` ORDER BY class_level ASC, period ASC`
	var structures []models.FeeStructure
	if err := r.db.SelectContext(ctx, &structures, query, args...); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return structures, nil
}

// DeleteStructure removes a fee structure.
func (r *FeeRepository) DeleteStructure(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM fee_structures WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete fee structure: %w", err)
	}
	return nil
}

// InsertPayment appends one ledger entry and returns the recomputed balance
// in the same transaction, so the caller observes a consistent position.
func (r *FeeRepository) InsertPayment(ctx context.Context, payment *models.Payment, classLevel string) (*models.FeeBalance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record payment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const insert = `INSERT INTO payments (id, student_id, amount, date, method, reference, recorded_by, created_at)
        VALUES (:id, :student_id, :amount, :date, :method, :reference, :recorded_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	balance, err := balanceQuery(ctx, tx, payment.StudentID, classLevel)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record payment: %w", err)
	}
	commit = true
	return balance, nil
}

// ListPayments returns a student's payment history ordered by date.
func (r *FeeRepository) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	const query = `SELECT id, student_id, amount, date, method, reference, recorded_by, created_at
        FROM payments WHERE student_id = $1 ORDER BY date ASC, created_at ASC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// RecentPayments returns the latest ledger entries for a student.
func (r *FeeRepository) RecentPayments(ctx context.Context, studentID string, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT id, student_id, amount, date, method, reference, recorded_by, created_at
        FROM payments WHERE student_id = $1 ORDER BY date DESC, created_at DESC LIMIT %d`, limit)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("recent payments: %w", err)
	}
	return payments, nil
}

// Balance recomputes the derived fee position for one student. It is never
// cached: expected minus paid, negative preserved on overpayment.
func (r *FeeRepository) Balance(ctx context.Context, studentID, classLevel string) (*models.FeeBalance, error) {
	return balanceQuery(ctx, r.db, studentID, classLevel)
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func balanceQuery(ctx context.Context, q queryer, studentID, classLevel string) (*models.FeeBalance, error) {
	const query = `SELECT
        COALESCE((SELECT SUM(amount) FROM fee_structures WHERE class_level = $2 AND active = true), 0) AS total_expected,
        COALESCE((SELECT SUM(amount) FROM payments WHERE student_id = $1), 0) AS total_paid`
	var row struct {
		TotalExpected float64 `db:"total_expected"`
		TotalPaid     float64 `db:"total_paid"`
	}
	if err := q.GetContext(ctx, &row, query, studentID, classLevel); err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	return &models.FeeBalance{
		StudentID:     studentID,
		ClassLevel:    classLevel,
		TotalExpected: row.TotalExpected,
		TotalPaid:     row.TotalPaid,
		Balance:       row.TotalExpected - row.TotalPaid,
	}, nil
}
