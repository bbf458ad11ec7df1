package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(id int64, amt, category string) Transaction {
	return Transaction{ID: id, Amount: decimal.RequireFromString(amt), Category: category}
}

func TestMonthAggregateTotals(t *testing.T) {
	m := MonthAggregate{
		"2026-10-01": {tx(2, "10", "Coffee + Cafes"), tx(1, "5", "Car")},
		"2026-10-02": {tx(3, "20", "Car")},
	}

	assert.Equal(t, 3, m.Count())
	assert.True(t, m.Total().Equal(decimal.NewFromInt(35)))
	assert.True(t, m.DayTotal("2026-10-01").Equal(decimal.NewFromInt(15)))
	assert.True(t, m.DayTotal("2026-10-03").IsZero())

	byCat := m.ByCategory()
	require.Len(t, byCat, 2)
	assert.Equal(t, "Car", byCat[0].Name)
	assert.True(t, byCat[0].Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "Coffee + Cafes", byCat[1].Name)
}

func TestMonthAggregateWithDoesNotMutate(t *testing.T) {
	m := MonthAggregate{"2026-10-01": {tx(1, "5", "Car")}}
	next := m.With("2026-10-02", []Transaction{tx(2, "1", "Misc")})

	assert.Len(t, m, 1)
	assert.Len(t, next, 2)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12", "12", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" $7 ", "7", true},
		{"0.01", "0.01", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%q -> %s", tc.in, got)
	}
}
