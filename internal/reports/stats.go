package reports

import (
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const recentLimit = 5

type WeekdayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type Stats struct {
	Count          int                  `json:"count"`
	AverageAmount  decimal.Decimal      `json:"averageAmount"`
	LargestExpense *models.Transaction  `json:"largestExpense,omitempty"`
	LargestIncome  *models.Transaction  `json:"largestIncome,omitempty"`
	Recent         []models.Transaction `json:"recent"`
	TopCategories  []CategoryCount      `json:"topCategories"`
	Weekdays       []WeekdayCount       `json:"weekdays"`
	DaysSinceFirst int                  `json:"daysSinceFirst"`
}

// TransactionStats summarizes activity. The average covers every record
// except credit purchase rows so a purchase and its payments are not both
// counted.
func TransactionStats(txs []models.Transaction, now time.Time) Stats {
	loc := now.Location()
	out := Stats{
		AverageAmount: decimal.Zero,
		Recent:        []models.Transaction{},
		TopCategories: topCategoryCounts(txs),
		Weekdays:      make([]WeekdayCount, 7),
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		out.Weekdays[d].Day = d.String()
	}

	var (
		sum      decimal.Decimal
		averaged int
		earliest time.Time
		valid    []models.Transaction
	)
	dated(txs, loc, func(tx *models.Transaction, date time.Time) {
		out.Count++
		valid = append(valid, *tx)
		out.Weekdays[date.Weekday()].Count++
		if earliest.IsZero() || date.Before(earliest) {
			earliest = date
		}
		if !tx.IsCreditPurchase() {
			sum = sum.Add(tx.Amount)
			averaged++
		}
		switch {
		case countsAsExpense(tx):
			if out.LargestExpense == nil || tx.Amount.GreaterThan(out.LargestExpense.Amount) {
				c := *tx
				out.LargestExpense = &c
			}
		case tx.Type == models.TransactionIncome:
			if out.LargestIncome == nil || tx.Amount.GreaterThan(out.LargestIncome.Amount) {
				c := *tx
				out.LargestIncome = &c
			}
		}
	})

	if averaged > 0 {
		out.AverageAmount = sum.Div(decimal.NewFromInt(int64(averaged))).RoundBank(2)
	}
	if !earliest.IsZero() {
		out.DaysSinceFirst = daysBetween(startOfDay(earliest), startOfDay(now))
	}

	slices.SortStableFunc(valid, func(a, b models.Transaction) int { return b.Date.Compare(a.Date) })
	if len(valid) > recentLimit {
		valid = valid[:recentLimit]
	}
	out.Recent = append(out.Recent, valid...)
	return out
}

// daysBetween counts calendar days, rounding away DST hour shifts.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
