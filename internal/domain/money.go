package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	// the backend speaks JSON numbers for every amount
	decimal.MarshalJSONWithoutQuotes = true
}

// Totals server-computed aggregate figures, e.g. balance, credit, debit.
// They are a display cache and are never recomputed on the client.
type Totals map[string]decimal.Decimal

// Get returns the named figure or zero.
func (t Totals) Get(name string) decimal.Decimal {
	if t == nil {
		return decimal.Zero
	}
	return t[name]
}

// Keys returns figure names in a stable order.
func (t Totals) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (t Totals) Clone() Totals {
	if t == nil {
		return nil
	}
	out := make(Totals, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
