package domain

import "github.com/shopspring/decimal"

// FeeStatus collection state of a fee.
type FeeStatus string

const (
	FeePending FeeStatus = "PENDING"
	FeePartial FeeStatus = "PARTIAL"
	FeePaid    FeeStatus = "PAID"
	FeeOverdue FeeStatus = "OVERDUE"
)

// String returns the string representation.
func (s FeeStatus) String() string {
	return string(s)
}

// PaymentMode how money changed hands.
type PaymentMode string

const (
	PaymentCash         PaymentMode = "CASH"
	PaymentUPI          PaymentMode = "UPI"
	PaymentBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentCheque       PaymentMode = "CHEQUE"
	PaymentCard         PaymentMode = "CARD"
)

// String returns the string representation.
func (m PaymentMode) String() string {
	return string(m)
}

// Fee amount a student owes.
type Fee struct {
	ID          string          `json:"id,omitempty"`
	StudentID   string          `json:"studentId" validate:"required"`
	StudentName string          `json:"studentName,omitempty" validate:"-"`
	BatchID     string          `json:"batchId" validate:"omitempty"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaidAmount  decimal.Decimal `json:"paidAmount" validate:"-"`
	DueDate     Date            `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Status      FeeStatus       `json:"status" validate:"required,oneof=PENDING PARTIAL PAID OVERDUE"`
	Description string          `json:"description" validate:"omitempty,max=255"`
}

func (f Fee) GetID() string { return f.ID }

// Outstanding returns the unpaid part of the fee.
func (f Fee) Outstanding() decimal.Decimal {
	rest := f.Amount.Sub(f.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

func (f Fee) Columns() []string {
	return []string{"ID", "Student", "Amount", "Paid", "Due", "Status"}
}

func (f Fee) Cells() []string {
	student := f.StudentName
	if student == "" {
		student = f.StudentID
	}
	return []string{f.ID, student, money(f.Amount), money(f.PaidAmount), f.DueDate.String(), f.Status.String()}
}

// Payment money received against a fee.
type Payment struct {
	ID            string          `json:"id,omitempty"`
	StudentID     string          `json:"studentId" validate:"required"`
	FeeID         string          `json:"feeId" validate:"omitempty"`
	BankAccountID string          `json:"bankAccountId" validate:"required_unless=Method CASH"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Method        PaymentMode     `json:"method" validate:"required,oneof=CASH UPI BANK_TRANSFER CHEQUE CARD"`
	PaidAt        Date            `json:"paidAt" validate:"required,datetime=2006-01-02"`
	Reference     string          `json:"reference" validate:"omitempty,max=100"`
}

func (p Payment) GetID() string { return p.ID }

func (p Payment) Columns() []string {
	return []string{"ID", "Date", "Student", "Fee", "Method", "Amount"}
}

func (p Payment) Cells() []string {
	return []string{p.ID, p.PaidAt.String(), p.StudentID, p.FeeID, p.Method.String(), money(p.Amount)}
}
