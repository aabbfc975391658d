package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

type feeRepository interface {
	UpsertStructure(ctx context.Context, structure *models.FeeStructure) (*models.FeeStructure, error)
	ListStructures(ctx context.Context, classLevel string) ([]models.FeeStructure, error)
	DeleteStructure(ctx context.Context, id string) error
	InsertPayment(ctx context.Context, payment *models.Payment, classLevel string) (*models.FeeBalance, error)
	ListPayments(ctx context.Context, studentID string) ([]models.Payment, error)
	Balance(ctx context.Context, studentID, classLevel string) (*models.FeeBalance, error)
}

type feeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// FeeService manages fee structures and the append-only payment ledger.
// Balances are always derived from the ledger, never stored.
type FeeService struct {
	fees      feeRepository
	students  feeStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs a FeeService instance.
func NewFeeService(fees feeRepository, students feeStudentReader, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeService{fees: fees, students: students, validator: validate, logger: logger}
}

// SetStructure creates or replaces the fee structure for a class level
// and billing period. Writing the same pair again overwrites the amount.
func (s *FeeService) SetStructure(ctx context.Context, req models.FeeStructureRequest) (*models.FeeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}

	now := time.Now().UTC()
	structure := &models.FeeStructure{
		ID:         uuid.NewString(),
		ClassLevel: req.ClassLevel,
		Period:     req.Period,
		Amount:     req.Amount,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	saved, err := s.fees.UpsertStructure(ctx, structure)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save fee structure")
	}

	s.logger.Info("fee structure set",
		zap.String("class_level", saved.ClassLevel),
		zap.String("period", saved.Period),
		zap.Float64("amount", saved.Amount))
	return saved, nil
}

// ListStructures returns fee structures, optionally for one class level.
func (s *FeeService) ListStructures(ctx context.Context, classLevel string) ([]models.FeeStructure, error) {
	structures, err := s.fees.ListStructures(ctx, classLevel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee structures")
	}
	return structures, nil
}

// DeleteStructure removes a fee structure. Payments already recorded
// against its period are unaffected.
func (s *FeeService) DeleteStructure(ctx context.Context, id string) error {
	if err := s.fees.DeleteStructure(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee structure")
	}
	return nil
}

// RecordPayment appends one payment to the student's ledger and returns
// the balance as computed inside the same transaction. Amounts must be
// positive; corrections are recorded as new entries, never edits.
func (s *FeeService) RecordPayment(ctx context.Context, recordedBy string, req models.PaymentRequest) (*models.Payment, *models.FeeBalance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Method.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	payment := &models.Payment{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		Amount:     req.Amount,
		Date:       req.Date,
		Method:     req.Method,
		Reference:  req.Reference,
		RecordedBy: recordedBy,
		CreatedAt:  time.Now().UTC(),
	}
	balance, err := s.fees.InsertPayment(ctx, payment, student.ClassLevel)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("student_id", payment.StudentID),
		zap.Float64("amount", payment.Amount),
		zap.Float64("balance", balance.Balance))
	return payment, balance, nil
}

// Payments lists a student's full payment history, newest first. Scope
// is checked before any ledger access.
func (s *FeeService) Payments(ctx context.Context, principal *models.Principal, studentID string) ([]models.Payment, error) {
	if !principal.CanAccessStudent(studentID) {
		return nil, appErrors.Clone(appErrors.ErrScopeViolation, "student is outside your scope")
	}
	payments, err := s.fees.ListPayments(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// Balance returns the student's derived fee position. A negative balance
// means overpayment and is reported as is.
func (s *FeeService) Balance(ctx context.Context, principal *models.Principal, studentID string) (*models.FeeBalance, error) {
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
	return balance, nil
}
