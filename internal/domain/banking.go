package domain

import "github.com/shopspring/decimal"

// BankAccount institute bank account.
type BankAccount struct {
	ID             string          `json:"id,omitempty"`
	AccountName    string          `json:"accountName" validate:"required,min=2,max=100"`
	BankName       string          `json:"bankName" validate:"required,max=100"`
	AccountNumber  string          `json:"accountNumber" validate:"required,min=5,max=20,numeric"`
	IFSC           string          `json:"ifsc" validate:"omitempty,len=11,alphanum"`
	Branch         string          `json:"branch" validate:"omitempty,max=100"`
	OpeningBalance decimal.Decimal `json:"openingBalance" validate:"gte=0"`
	IsActive       bool            `json:"isActive"`
}

func (a BankAccount) GetID() string { return a.ID }

func (a BankAccount) Columns() []string {
	return []string{"ID", "Account", "Bank", "Number", "Opening", "Active"}
}

func (a BankAccount) Cells() []string {
	return []string{a.ID, a.AccountName, a.BankName, a.AccountNumber, money(a.OpeningBalance), boolCell(a.IsActive)}
}

// BankTransaction credit or debit on a bank account.
type BankTransaction struct {
	ID            string          `json:"id,omitempty"`
	BankAccountID string          `json:"bankAccountId" validate:"required"`
	Type          EntryType       `json:"type" validate:"required,oneof=CREDIT DEBIT"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Date          Date            `json:"date" validate:"required,datetime=2006-01-02"`
	Description   string          `json:"description" validate:"omitempty,max=255"`
	Reference     string          `json:"reference" validate:"omitempty,max=100"`
}

func (t BankTransaction) GetID() string { return t.ID }

func (t BankTransaction) Columns() []string {
	return []string{"ID", "Date", "Account", "Type", "Amount", "Description"}
}

func (t BankTransaction) Cells() []string {
	return []string{t.ID, t.Date.String(), t.BankAccountID, t.Type.String(), money(t.Amount), t.Description}
}
