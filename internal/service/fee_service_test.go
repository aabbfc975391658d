package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type fakeFeeRepo struct {
	structures []models.FeeStructure
	payments   []models.Payment
	balance    *models.FeeBalance
}

func (f *fakeFeeRepo) UpsertStructure(_ context.Context, structure *models.FeeStructure) (*models.FeeStructure, error) {
	for i := range f.structures {
		if f.structures[i].ClassLevel == structure.ClassLevel && f.structures[i].Period == structure.Period {
			f.structures[i].Amount = structure.Amount
			return &f.structures[i], nil
		}
	}
	f.structures = append(f.structures, *structure)
	return structure, nil
}

func (f *fakeFeeRepo) ListStructures(_ context.Context, classLevel string) ([]models.FeeStructure, error) {
	if classLevel == "" {
		return f.structures, nil
	}
	var out []models.FeeStructure
	for _, s := range f.structures {
		if s.ClassLevel == classLevel {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeFeeRepo) DeleteStructure(_ context.Context, id string) error {
	for i, s := range f.structures {
		if s.ID == id {
			f.structures = append(f.structures[:i], f.structures[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeFeeRepo) InsertPayment(_ context.Context, payment *models.Payment, classLevel string) (*models.FeeBalance, error) {
	f.payments = append(f.payments, *payment)
	return f.computeBalance(payment.StudentID, classLevel), nil
}

func (f *fakeFeeRepo) ListPayments(_ context.Context, studentID string) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFeeRepo) Balance(_ context.Context, studentID, classLevel string) (*models.FeeBalance, error) {
	if f.balance != nil {
		return f.balance, nil
	}
	return f.computeBalance(studentID, classLevel), nil
}

func (f *fakeFeeRepo) computeBalance(studentID, classLevel string) *models.FeeBalance {
	var expected, paid float64
	for _, s := range f.structures {
		if s.ClassLevel == classLevel && s.Active {
			expected += s.Amount
		}
	}
	for _, p := range f.payments {
		if p.StudentID == studentID {
			paid += p.Amount
		}
	}
	return &models.FeeBalance{
		StudentID:     studentID,
		ClassLevel:    classLevel,
		TotalExpected: expected,
		TotalPaid:     paid,
		Balance:       expected - paid,
	}
}

type fakeStudentReader struct {
	students map[string]*models.Student
}

func (f *fakeStudentReader) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func staffPrincipal() *models.Principal {
	return &models.Principal{Kind: models.PrincipalStaff, UserID: "staff-1", Role: models.RoleAdmin}
}

func parentPrincipal(studentIDs ...string) *models.Principal {
	return &models.Principal{Kind: models.PrincipalParent, GuardianID: "guardian-1", StudentIDs: studentIDs}
}

func newFeeFixture() (*FeeService, *fakeFeeRepo) {
	fees := &fakeFeeRepo{
		structures: []models.FeeStructure{
			{ID: "fs-1", ClassLevel: "P4", Period: "2026-T1", Amount: 1500, Active: true},
			{ID: "fs-2", ClassLevel: "P4", Period: "2026-T2", Amount: 1500, Active: true},
		},
	}
	students := &fakeStudentReader{students: map[string]*models.Student{
		"student-1": {ID: "student-1", AdmissionNumber: "ADM-001", FirstName: "Amina", ClassLevel: "P4", Active: true},
	}}
	return NewFeeService(fees, students, nil, zap.NewNop()), fees
}

func TestFeeServiceRecordPaymentUpdatesBalance(t *testing.T) {
	svc, _ := newFeeFixture()

	payment, balance, err := svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "student-1",
		Amount:    1000,
		Date:      time.Now(),
		Method:    models.PaymentMethodMobile,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, payment.Amount)
	assert.Equal(t, 3000.0, balance.TotalExpected)
	assert.Equal(t, 1000.0, balance.TotalPaid)
	assert.Equal(t, 2000.0, balance.Balance)
}

func TestFeeServiceOverpaymentYieldsNegativeBalance(t *testing.T) {
	svc, _ := newFeeFixture()

	_, _, err := svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "student-1", Amount: 2000, Date: time.Now(), Method: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	_, balance, err := svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "student-1", Amount: 1500, Date: time.Now(), Method: models.PaymentMethodBank,
	})
	require.NoError(t, err)
	assert.Equal(t, -500.0, balance.Balance)
}

func TestFeeServiceRejectsNonPositiveAmount(t *testing.T) {
	svc, fees := newFeeFixture()

	_, _, err := svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "student-1", Amount: 0, Date: time.Now(), Method: models.PaymentMethodCash,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, _, err = svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "student-1", Amount: -50, Date: time.Now(), Method: models.PaymentMethodCash,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Empty(t, fees.payments)
}

func TestFeeServiceRejectsUnknownMethod(t *testing.T) {
	svc, _ := newFeeFixture()

	_, _, err := svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "student-1", Amount: 100, Date: time.Now(), Method: "CHEQUE",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestFeeServiceRecordPaymentUnknownStudent(t *testing.T) {
	svc, _ := newFeeFixture()

	_, _, err := svc.RecordPayment(context.Background(), "staff-1", models.PaymentRequest{
		StudentID: "8b9f1f84-7a92-4d1e-9c55-0f8f0a6c2d11", Amount: 100, Date: time.Now(), Method: models.PaymentMethodCash,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestFeeServiceBalanceScopeCheckedBeforeAccess(t *testing.T) {
	svc, _ := newFeeFixture()

	_, err := svc.Balance(context.Background(), parentPrincipal("student-2"), "student-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))

	balance, err := svc.Balance(context.Background(), parentPrincipal("student-1"), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "student-1", balance.StudentID)
}

func TestFeeServicePaymentsScope(t *testing.T) {
	svc, _ := newFeeFixture()

	_, err := svc.Payments(context.Background(), parentPrincipal(), "student-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrScopeViolation))

	_, err = svc.Payments(context.Background(), staffPrincipal(), "student-1")
	assert.NoError(t, err)
}

func TestFeeServiceSetStructureOverwritesPair(t *testing.T) {
	svc, fees := newFeeFixture()

	saved, err := svc.SetStructure(context.Background(), models.FeeStructureRequest{
		ClassLevel: "P4", Period: "2026-T1", Amount: 1800,
	})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, saved.Amount)
	assert.Len(t, fees.structures, 2)
}
