package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

// StatsRepository aggregates the counts shown on the admin dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Counts returns entity totals in one round trip.
func (r *StatsRepository) Counts(ctx context.Context) (*models.AdminDashboard, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students) AS students,
        (SELECT COUNT(*) FROM fee_structures) AS fee_structures,
        (SELECT COUNT(*) FROM exams) AS exams,
        (SELECT COUNT(*) FROM announcements) AS announcements,
        (SELECT COUNT(*) FROM complaints WHERE status = 'OPEN') AS open_complaints`
	var row struct {
		Students       int `db:"students"`
		FeeStructures  int `db:"fee_structures"`
		Exams          int `db:"exams"`
		Announcements  int `db:"announcements"`
		OpenComplaints int `db:"open_complaints"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	return &models.AdminDashboard{
		Students:       row.Students,
		FeeStructures:  row.FeeStructures,
		Exams:          row.Exams,
		Announcements:  row.Announcements,
		OpenComplaints: row.OpenComplaints,
	}, nil
}
