package models

import "time"

// FeeStructure defines the expected amount for a class level and billing
// period. At most one active structure may exist per (class_level, period).
type FeeStructure struct {
	ID         string    `db:"id" json:"id"`
	ClassLevel string    `db:"class_level" json:"class_level"`
	Period     string    `db:"period" json:"period"`
	Amount     float64   `db:"amount" json:"amount"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodBank   PaymentMethod = "BANK"
	PaymentMethodMobile PaymentMethod = "MOBILE"
)

// Valid returns true when the method is a supported value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBank, PaymentMethodMobile:
		return true
	default:
		return false
	}
}

// Payment is an immutable, append-only ledger entry. Rows are never
// updated or deleted once written.
type Payment struct {
	ID         string        `db:"id" json:"id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	Amount     float64       `db:"amount" json:"amount"`
	Date       time.Time     `db:"date" json:"date"`
	Method     PaymentMethod `db:"method" json:"method"`
	Reference  *string       `db:"reference" json:"reference,omitempty"`
	RecordedBy string        `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// FeeStructureRequest creates or replaces the structure for a
// (class_level, period) pair.
type FeeStructureRequest struct {
	ClassLevel string  `json:"class_level" validate:"required,max=32"`
	Period     string  `json:"period" validate:"required,max=32"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
}

// PaymentRequest records one payment against a student's ledger.
type PaymentRequest struct {
	StudentID string        `json:"student_id" validate:"required"`
	Amount    float64       `json:"amount" validate:"required,gt=0"`
	Date      time.Time     `json:"date" validate:"required"`
	Method    PaymentMethod `json:"method" validate:"required"`
	Reference *string       `json:"reference,omitempty"`
}

// FeeBalance is the derived fee position for one student. Balance is
// expected minus paid and stays negative on overpayment.
type FeeBalance struct {
	StudentID     string  `json:"student_id"`
	ClassLevel    string  `json:"class_level"`
	TotalExpected float64 `json:"total_expected"`
	TotalPaid     float64 `json:"total_paid"`
	Balance       float64 `json:"balance"`
}
