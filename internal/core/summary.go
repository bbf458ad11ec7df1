package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"category"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthAggregate maps a partition key to that day's transactions, most recent first.
// Days without stored data are absent rather than empty.
type MonthAggregate map[string][]Transaction

// With returns a copy of m whose entry for date is replaced by day.
func (m MonthAggregate) With(date string, day []Transaction) MonthAggregate {
	out := make(MonthAggregate, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[date] = day
	return out
}

// Count returns the number of transactions across all days.
func (m MonthAggregate) Count() int {
	n := 0
	for _, day := range m {
		n += len(day)
	}
	return n
}

// Total sums every transaction in the month.
func (m MonthAggregate) Total() decimal.Decimal {
	total := decimal.Zero
	for _, day := range m {
		total = total.Add(SumDay(day))
	}
	return total
}

// DayTotal sums the transactions filed under date.
func (m MonthAggregate) DayTotal(date string) decimal.Decimal {
	return SumDay(m[date])
}

// ByCategory totals the month per category, largest first.
func (m MonthAggregate) ByCategory() []CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, day := range m {
		for _, t := range day {
			totals[t.Category] = totals[t.Category].Add(t.Amount)
		}
	}
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SumDay sums one day's transactions.
func SumDay(day []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range day {
		total = total.Add(t.Amount)
	}
	return total
}
