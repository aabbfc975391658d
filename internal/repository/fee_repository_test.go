package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/ujumbe360/school-portal-api/internal/models"
)

func TestFeeRepositoryUpsertStructure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	rows := sqlmock.NewRows([]string{"id", "class_level", "period", "amount", "active", "created_at", "updated_at"}).
		AddRow("fs-1", "P4", "2026-T1", 1500.0, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO fee_structures")).
		WillReturnRows(rows)

	stored, err := repo.UpsertStructure(context.Background(), &models.FeeStructure{
		ClassLevel: "P4", Period: "2026-T1", Amount: 1500, Active: true,
	})
	require.NoError(t, err)
	require.Equal(t, "fs-1", stored.ID)
	require.Equal(t, 1500.0, stored.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryInsertPaymentReturnsBalance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("AS total_expected")).
		WithArgs("student-1", "P4").
		WillReturnRows(sqlmock.NewRows([]string{"total_expected", "total_paid"}).AddRow(3000.0, 1000.0))
	mock.ExpectCommit()

	payment := &models.Payment{
		StudentID:  "student-1",
		Amount:     1000,
		Date:       time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Method:     models.PaymentMethodMobile,
		RecordedBy: "staff-1",
	}
	balance, err := repo.InsertPayment(context.Background(), payment, "P4")
	require.NoError(t, err)
	require.NotEmpty(t, payment.ID)
	require.Equal(t, 3000.0, balance.TotalExpected)
	require.Equal(t, 1000.0, balance.TotalPaid)
	require.Equal(t, 2000.0, balance.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryBalanceNegativeOnOverpayment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("AS total_expected")).
		WithArgs("student-1", "P4").
		WillReturnRows(sqlmock.NewRows([]string{"total_expected", "total_paid"}).AddRow(3000.0, 3500.0))

	balance, err := repo.Balance(context.Background(), "student-1", "P4")
	require.NoError(t, err)
	require.Equal(t, -500.0, balance.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListPayments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "date", "method", "reference", "recorded_by", "created_at"}).
		AddRow("pay-1", "student-1", 1000.0, time.Now(), "CASH", nil, "staff-1", time.Now()).
		AddRow("pay-2", "student-1", 500.0, time.Now(), "MOBILE", nil, "staff-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE student_id")).
		WithArgs("student-1").
		WillReturnRows(rows)

	payments, err := repo.ListPayments(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.Equal(t, models.PaymentMethodCash, payments[0].Method)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryDeleteStructure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM fee_structures WHERE id")).
		WithArgs("fs-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteStructure(context.Background(), "fs-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
