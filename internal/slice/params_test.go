package slice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestParams(t *testing.T) {
	p := Params{"status": "ACTIVE", "search": ""}

	assert.Equal(t, "status=ACTIVE", p.Values().Encode())
	assert.Equal(t, Params{"status": "ACTIVE", "search": "", "page": "2"}, p.WithPage(2))
	assert.Equal(t, Params{"status": "ACTIVE"}, p.With("search", ""))
	assert.Equal(t, Params{"status": "ACTIVE", "search": ""}, p, "original untouched")
	assert.Equal(t, Params{"b": "2", "a": "1"}.Key(), Params{"a": "1", "b": "2"}.Key())
}
