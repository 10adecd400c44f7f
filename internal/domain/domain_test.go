package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Date
	}{
		{name: "plain day", input: `"2024-03-01"`, expected: "2024-03-01"},
		{name: "timestamp cut to day", input: `"2024-03-01T10:30:00Z"`, expected: "2024-03-01"},
		{name: "offset timestamp in UTC", input: `"2024-03-01T01:00:00+05:30"`, expected: "2024-02-29"},
		{name: "empty", input: `""`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.expected, d)
		})
	}

	var d Date
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))
}

func TestDate_Time(t *testing.T) {
	assert.Equal(t, 2024, Date("2024-03-01").Time().Year())
	assert.True(t, Date("soon").Time().IsZero())
	assert.True(t, Date("").Time().IsZero())
	assert.False(t, Today().Time().IsZero())
}

func TestFee_Outstanding(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		paid     int64
		expected int64
	}{
		{name: "unpaid", amount: 1500, paid: 0, expected: 1500},
		{name: "partial", amount: 1500, paid: 500, expected: 1000},
		{name: "paid", amount: 1500, paid: 1500, expected: 0},
		{name: "overpaid never negative", amount: 1500, paid: 2000, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := Fee{Amount: decimal.NewFromInt(tt.amount), PaidAmount: decimal.NewFromInt(tt.paid)}
			assert.True(t, fee.Outstanding().Equal(decimal.NewFromInt(tt.expected)),
				"got %s", fee.Outstanding())
		})
	}
}

func TestTotals(t *testing.T) {
	var totals Totals
	require.NoError(t, json.Unmarshal([]byte(`{"income":1200.5,"expense":1500,"balance":-299.5}`), &totals))

	assert.Equal(t, []string{"balance", "expense", "income"}, totals.Keys())
	assert.Equal(t, "-299.50", money(totals.Get("balance")))
	assert.True(t, totals.Get("missing").IsZero())

	clone := totals.Clone()
	clone["balance"] = decimal.Zero
	assert.Equal(t, "-299.50", money(totals.Get("balance")))

	var none Totals
	assert.Nil(t, none.Clone())
	assert.True(t, none.Get("balance").IsZero())
}

func TestMoneyEncodesAsNumber(t *testing.T) {
	payload, err := json.Marshal(BankAccount{AccountName: "Main", OpeningBalance: decimal.RequireFromString("250.75")})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"openingBalance":250.75`)
	assert.NotContains(t, string(payload), `"id"`)
}

func TestPagination(t *testing.T) {
	var p *Pagination
	assert.False(t, p.HasNext())
	assert.False(t, p.HasPrev())

	p = &Pagination{CurrentPage: 1, TotalPages: 3}
	assert.True(t, p.HasNext())
	assert.False(t, p.HasPrev())

	p.CurrentPage = 3
	assert.False(t, p.HasNext())
	assert.True(t, p.HasPrev())
}

func TestEntryType_Inflow(t *testing.T) {
	assert.True(t, EntryCredit.Inflow())
	assert.True(t, EntryIncome.Inflow())
	assert.False(t, EntryDebit.Inflow())
	assert.False(t, EntryExpense.Inflow())
}

func TestCells(t *testing.T) {
	fee := Fee{ID: "F1", StudentID: "S1", Amount: decimal.NewFromInt(100), DueDate: "2024-04-01", Status: FeePending}
	assert.Len(t, fee.Cells(), len(fee.Columns()))
	assert.Equal(t, "S1", fee.Cells()[1])

	fee.StudentName = "Ravi"
	assert.Equal(t, "Ravi", fee.Cells()[1])
	assert.Equal(t, "100.00", fee.Cells()[2])
}
