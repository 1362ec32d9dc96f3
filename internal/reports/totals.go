package reports

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

type MonthTotal struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type YearTotal struct {
	Year    string          `json:"year"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// MonthlyTotals groups by calendar month in loc. Keys are "YYYY-MM" and the
// result is sorted ascending, which is also chronological.
func MonthlyTotals(txs []models.Transaction, loc *time.Location) []MonthTotal {
	buckets := map[string]*MonthTotal{}
	dated(txs, location(loc), func(tx *models.Transaction, date time.Time) {
		key := date.Format(monthLayout)
		b, ok := buckets[key]
		if !ok {
			b = &MonthTotal{Month: key}
			buckets[key] = b
		}
		b.Income, b.Expense = accumulate(tx, b.Income, b.Expense)
	})

	out := make([]MonthTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b MonthTotal) int { return strings.Compare(a.Month, b.Month) })
	return out
}

// YearlyTotals applies the MonthlyTotals rules per calendar year.
func YearlyTotals(txs []models.Transaction, loc *time.Location) []YearTotal {
	buckets := map[string]*YearTotal{}
	dated(txs, location(loc), func(tx *models.Transaction, date time.Time) {
		key := date.Format(yearLayout)
		b, ok := buckets[key]
		if !ok {
			b = &YearTotal{Year: key}
			buckets[key] = b
		}
		b.Income, b.Expense = accumulate(tx, b.Income, b.Expense)
	})

	out := make([]YearTotal, 0, len(buckets))
	for _, b := range buckets {
		b.Net = b.Income.Sub(b.Expense)
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b YearTotal) int { return strings.Compare(a.Year, b.Year) })
	return out
}

func accumulate(tx *models.Transaction, income, expense decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	switch {
	case tx.Type == models.TransactionIncome:
		income = income.Add(tx.Amount)
	case countsAsExpense(tx):
		expense = expense.Add(tx.Amount)
	}
	return income, expense
}
