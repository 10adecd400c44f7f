// Package domain defines the records mirrored from the institute backend.
package domain

// Entity is a record identified by a server-assigned id.
type Entity interface {
	GetID() string
}

// Tabular is implemented by records that can be shown as a table row.
type Tabular interface {
	Columns() []string
	Cells() []string
}

// Status lifecycle state shared by locations, courses, batches and students.
type Status string

const (
	// StatusActive record is in use.
	StatusActive Status = "ACTIVE"
	// StatusInactive record is hidden from pickers.
	StatusInactive Status = "INACTIVE"
	// StatusCompleted batch or student finished the course.
	StatusCompleted Status = "COMPLETED"
)

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the Status value is valid.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusCompleted
}

// EntryType direction of a money movement.
type EntryType string

const (
	// EntryCredit money in.
	EntryCredit EntryType = "CREDIT"
	// EntryDebit money out.
	EntryDebit EntryType = "DEBIT"
	// EntryIncome cashbook income.
	EntryIncome EntryType = "INCOME"
	// EntryExpense cashbook expense.
	EntryExpense EntryType = "EXPENSE"
)

// String returns the string representation.
func (t EntryType) String() string {
	return string(t)
}

// Inflow reports whether the entry increases a balance.
func (t EntryType) Inflow() bool {
	return t == EntryCredit || t == EntryIncome
}

func boolCell(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
