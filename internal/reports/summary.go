package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

// Summary is the headline financial position, also embedded in the
// assistant's system prompt.
type Summary struct {
	TotalIncome       decimal.Decimal `json:"totalIncome"`
	TotalExpense      decimal.Decimal `json:"totalExpense"`
	Balance           decimal.Decimal `json:"balance"`
	SavingsRate       float64         `json:"savingsRate"`
	TransactionCount  int             `json:"transactionCount"`
	CreditOutstanding decimal.Decimal `json:"creditOutstanding"`
	OpenCreditCount   int             `json:"openCreditCount"`
}

func BuildSummary(txs []models.Transaction) Summary {
	var out Summary
	for i := range txs {
		tx := &txs[i]
		if tx.Date.IsZero() {
			continue
		}
		out.TransactionCount++
		out.TotalIncome, out.TotalExpense = accumulate(tx, out.TotalIncome, out.TotalExpense)
		if tx.IsCreditPurchase() && tx.RemainingInstallments != nil && *tx.RemainingInstallments > 0 {
			remaining := decimal.NewFromInt(int64(*tx.RemainingInstallments))
			out.CreditOutstanding = out.CreditOutstanding.Add(tx.Amount.Mul(remaining))
			out.OpenCreditCount++
		}
	}
	out.Balance = out.TotalIncome.Sub(out.TotalExpense)
	out.SavingsRate = percent(out.Balance, out.TotalIncome)
	return out
}

// Overview bundles every report for the dashboard.
type Overview struct {
	Summary              Summary            `json:"summary"`
	Monthly              []MonthTotal       `json:"monthly"`
	Yearly               []YearTotal        `json:"yearly"`
	TopExpenseCategories []CategoryTotal    `json:"topExpenseCategories"`
	TopIncomeCategories  []CategoryTotal    `json:"topIncomeCategories"`
	Trends               Trends             `json:"trends"`
	Stats                Stats              `json:"stats"`
	Daily                []DaySpend         `json:"daily"`
	Recurring            []RecurringExpense `json:"recurring"`
}

func BuildOverview(txs []models.Transaction, now time.Time) Overview {
	return Overview{
		Summary:              BuildSummary(txs),
		Monthly:              MonthlyTotals(txs, now.Location()),
		Yearly:               YearlyTotals(txs, now.Location()),
		TopExpenseCategories: TopCategories(txs, CategoryExpense),
		TopIncomeCategories:  TopCategories(txs, CategoryIncome),
		Trends:               SpendingTrends(txs, now),
		Stats:                TransactionStats(txs, now),
		Daily:                DailySpending(txs, now),
		Recurring:            RecurringExpenses(txs),
	}
}
