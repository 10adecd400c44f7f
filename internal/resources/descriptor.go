// Package resources binds every backend collection to a remote resource slice and
// exposes them to the presenters through a type-erased Handle.
package resources

import (
	"sort"

	"github.com/vadiminshakov/coachdesk/internal/slice"
)

// Resource names.
const (
	Locations        = "locations"
	Courses          = "courses"
	Batches          = "batches"
	Students         = "students"
	BankAccounts     = "bank-accounts"
	BankTransactions = "bank-transactions"
	Fees             = "fees"
	Payments         = "payments"
	Cashbook         = "cashbook"
	DirectorLedger   = "director-ledger"
	Users            = "users"
	Reports          = "reports"
)

// Descriptor describes how one backend collection is addressed and mirrored.
type Descriptor struct {
	// Name resource name used in routes and commands.
	Name string
	// Title human label.
	Title    string
	Plural   string
	Singular string
	// Path endpoint relative to the API base.
	Path string
	// PluralKey field of the response data holding the list.
	PluralKey string
	Placement slice.Placement
	ReadOnly  bool
}

var descriptors = map[string]Descriptor{
	Locations:        {Name: Locations, Title: "Locations", Plural: "locations", Singular: "location", Path: "/locations", PluralKey: "locations", Placement: slice.Append},
	Courses:          {Name: Courses, Title: "Courses", Plural: "courses", Singular: "course", Path: "/courses", PluralKey: "courses", Placement: slice.Prepend},
	Batches:          {Name: Batches, Title: "Batches", Plural: "batches", Singular: "batch", Path: "/batches", PluralKey: "batches", Placement: slice.Prepend},
	Students:         {Name: Students, Title: "Students", Plural: "students", Singular: "student", Path: "/students", PluralKey: "students", Placement: slice.Prepend},
	BankAccounts:     {Name: BankAccounts, Title: "Bank accounts", Plural: "bank accounts", Singular: "bank account", Path: "/bank-accounts", PluralKey: "bankAccounts", Placement: slice.Append},
	BankTransactions: {Name: BankTransactions, Title: "Bank transactions", Plural: "bank transactions", Singular: "transaction", Path: "/bank-transactions", PluralKey: "transactions", Placement: slice.Prepend},
	Fees:             {Name: Fees, Title: "Fees", Plural: "fees", Singular: "fee", Path: "/fees", PluralKey: "fees", Placement: slice.Prepend},
	Payments:         {Name: Payments, Title: "Payments", Plural: "payments", Singular: "payment", Path: "/payments", PluralKey: "payments", Placement: slice.Prepend},
	Cashbook:         {Name: Cashbook, Title: "Cashbook", Plural: "cashbook", Singular: "cashbook entry", Path: "/cashbook", PluralKey: "entries", Placement: slice.Prepend},
	DirectorLedger:   {Name: DirectorLedger, Title: "Director ledger", Plural: "director ledger", Singular: "ledger entry", Path: "/director-ledger", PluralKey: "entries", Placement: slice.Prepend},
	Users:            {Name: Users, Title: "Users", Plural: "users", Singular: "user", Path: "/users", PluralKey: "users", Placement: slice.Append},
	Reports:          {Name: Reports, Title: "Reports", Plural: "reports", Singular: "report", Path: "/reports", PluralKey: "reports", ReadOnly: true},
}

// Lookup returns the descriptor of the named resource.
func Lookup(name string) (Descriptor, bool) {
	d, ok := descriptors[name]
	return d, ok
}

// Names returns all resource names, sorted.
func Names() []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d Descriptor) sliceOptions() slice.Options {
	return slice.Options{Name: d.Name, Plural: d.Plural, Singular: d.Singular, Placement: d.Placement}
}
