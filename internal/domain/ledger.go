package domain

import "github.com/shopspring/decimal"

// Category cashbook transaction category.
type Category string

const (
	// CategoryStudentFee fee collected from a student; needs location, batch and student.
	CategoryStudentFee Category = "STUDENT_FEE"
	// CategoryDirectorTransfer money moved to or from a director; needs a director.
	CategoryDirectorTransfer Category = "DIRECTOR_TRANSFER"
	CategorySalary           Category = "SALARY"
	CategoryRent             Category = "RENT"
	CategoryUtilities        Category = "UTILITIES"
	CategoryMarketing        Category = "MARKETING"
	CategoryOther            Category = "OTHER"
)

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// CashbookEntry single line in the institute cashbook.
type CashbookEntry struct {
	ID          string          `json:"id,omitempty"`
	Date        Date            `json:"date" validate:"required,datetime=2006-01-02"`
	Type        EntryType       `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Category    Category        `json:"category" validate:"required,oneof=STUDENT_FEE DIRECTOR_TRANSFER SALARY RENT UTILITIES MARKETING OTHER"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMode PaymentMode     `json:"paymentMode" validate:"required,oneof=CASH UPI BANK_TRANSFER CHEQUE CARD"`
	Description string          `json:"description" validate:"omitempty,max=255"`
	LocationID  string          `json:"locationId,omitempty" validate:"required_if=Category STUDENT_FEE"`
	BatchID     string          `json:"batchId,omitempty" validate:"required_if=Category STUDENT_FEE"`
	StudentID   string          `json:"studentId,omitempty" validate:"required_if=Category STUDENT_FEE"`
	DirectorID  string          `json:"directorId,omitempty" validate:"required_if=Category DIRECTOR_TRANSFER"`
}

func (e CashbookEntry) GetID() string { return e.ID }

func (e CashbookEntry) Columns() []string {
	return []string{"ID", "Date", "Type", "Category", "Mode", "Amount", "Description"}
}

func (e CashbookEntry) Cells() []string {
	return []string{e.ID, e.Date.String(), e.Type.String(), e.Category.String(), e.PaymentMode.String(), money(e.Amount), e.Description}
}

// DirectorLedgerEntry movement on a director's personal account with the institute.
type DirectorLedgerEntry struct {
	ID           string          `json:"id,omitempty"`
	DirectorID   string          `json:"directorId" validate:"required"`
	DirectorName string          `json:"directorName,omitempty" validate:"-"`
	Date         Date            `json:"date" validate:"required,datetime=2006-01-02"`
	Type         EntryType       `json:"type" validate:"required,oneof=CREDIT DEBIT"`
	Amount       decimal.Decimal `json:"amount" validate:"gt=0"`
	Description  string          `json:"description" validate:"omitempty,max=255"`
}

func (e DirectorLedgerEntry) GetID() string { return e.ID }

func (e DirectorLedgerEntry) Columns() []string {
	return []string{"ID", "Date", "Director", "Type", "Amount", "Description"}
}

func (e DirectorLedgerEntry) Cells() []string {
	director := e.DirectorName
	if director == "" {
		director = e.DirectorID
	}
	return []string{e.ID, e.Date.String(), director, e.Type.String(), money(e.Amount), e.Description}
}
