package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const trendMonths = 6

type MonthTrend struct {
	Month       string          `json:"month"`
	Income      decimal.Decimal `json:"income"`
	Expense     decimal.Decimal `json:"expense"`
	Savings     decimal.Decimal `json:"savings"`
	SavingsRate float64         `json:"savingsRate"`
}

// Trends covers the trailing six calendar months, oldest first, with the
// month-over-month change between the last two.
type Trends struct {
	Months        []MonthTrend `json:"months"`
	IncomeChange  float64      `json:"incomeChange"`
	ExpenseChange float64      `json:"expenseChange"`
}

// SpendingTrends buckets by month in now's location. When the previous month
// holds no transactions at all there is nothing to compare against and both
// changes are 0.
func SpendingTrends(txs []models.Transaction, now time.Time) Trends {
	current := startOfMonth(now)
	index := make(map[string]int, trendMonths)
	months := make([]MonthTrend, trendMonths)
	for i := 0; i < trendMonths; i++ {
		key := current.AddDate(0, i-(trendMonths-1), 0).Format(monthLayout)
		months[i] = MonthTrend{Month: key}
		index[key] = i
	}

	seen := make([]bool, trendMonths)
	dated(txs, now.Location(), func(tx *models.Transaction, date time.Time) {
		i, ok := index[date.Format(monthLayout)]
		if !ok {
			return
		}
		seen[i] = true
		months[i].Income, months[i].Expense = accumulate(tx, months[i].Income, months[i].Expense)
	})

	for i := range months {
		m := &months[i]
		m.Savings = m.Income.Sub(m.Expense)
		if m.Income.IsPositive() {
			m.SavingsRate = percent(m.Savings, m.Income)
		}
	}

	out := Trends{Months: months}
	prev, cur := months[trendMonths-2], months[trendMonths-1]
	if seen[trendMonths-2] {
		out.IncomeChange = monthOverMonth(prev.Income, cur.Income)
		out.ExpenseChange = monthOverMonth(prev.Expense, cur.Expense)
	}
	return out
}

func monthOverMonth(prev, cur decimal.Decimal) float64 {
	if prev.IsZero() {
		if cur.IsPositive() {
			return 100
		}
		return 0
	}
	return percent(cur.Sub(prev), prev)
}
