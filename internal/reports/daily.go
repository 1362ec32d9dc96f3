package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const dailyWindow = 30

type DaySpend struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// DailySpending returns exactly 30 entries, today-29 through today in now's
// location, including days without spending.
func DailySpending(txs []models.Transaction, now time.Time) []DaySpend {
	today := startOfDay(now)
	out := make([]DaySpend, dailyWindow)
	index := make(map[string]int, dailyWindow)
	for i := 0; i < dailyWindow; i++ {
		key := today.AddDate(0, 0, i-(dailyWindow-1)).Format(dayLayout)
		out[i] = DaySpend{Date: key, Amount: decimal.Zero}
		index[key] = i
	}

	dated(txs, now.Location(), func(tx *models.Transaction, date time.Time) {
		if !countsAsExpense(tx) {
			return
		}
		if i, ok := index[date.Format(dayLayout)]; ok {
			out[i].Amount = out[i].Amount.Add(tx.Amount)
		}
	})
	return out
}
