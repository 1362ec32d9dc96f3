package reports

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const topCategoriesLimit = 5

// CategoryKind filters TopCategories.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
	CategoryAll     CategoryKind = "all"
)

func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryIncome, CategoryExpense, CategoryAll:
		return true
	default:
		return false
	}
}

type CategoryTotal struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopCategories sums amounts per case-insensitive category and returns the
// five largest. Uncategorized records are ignored; ties keep first-seen order.
// Credit purchase rows are skipped since their installment payments already
// count as expenses.
func TopCategories(txs []models.Transaction, kind CategoryKind) []CategoryTotal {
	var order []string
	sums := map[string]decimal.Decimal{}
	for i := range txs {
		tx := &txs[i]
		if tx.Date.IsZero() || !matchesKind(tx, kind) {
			continue
		}
		key := tx.CategoryKey()
		if key == "" {
			continue
		}
		if _, ok := sums[key]; !ok {
			order = append(order, key)
		}
		sums[key] = sums[key].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, key := range order {
		out = append(out, CategoryTotal{Name: displayName(key), Amount: sums[key]})
	}
	slices.SortStableFunc(out, func(a, b CategoryTotal) int { return b.Amount.Cmp(a.Amount) })
	if len(out) > topCategoriesLimit {
		out = out[:topCategoriesLimit]
	}
	return out
}

func matchesKind(tx *models.Transaction, kind CategoryKind) bool {
	switch kind {
	case CategoryIncome:
		return tx.Type == models.TransactionIncome
	case CategoryExpense:
		return countsAsExpense(tx)
	default:
		return !tx.IsCreditPurchase()
	}
}

// topCategoryCounts ranks categories by how often they occur.
func topCategoryCounts(txs []models.Transaction) []CategoryCount {
	var order []string
	counts := map[string]int{}
	for i := range txs {
		tx := &txs[i]
		if tx.Date.IsZero() {
			continue
		}
		key := tx.CategoryKey()
		if key == "" {
			continue
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	out := make([]CategoryCount, 0, len(order))
	for _, key := range order {
		out = append(out, CategoryCount{Name: displayName(key), Count: counts[key]})
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int { return b.Count - a.Count })
	if len(out) > topCategoriesLimit {
		out = out[:topCategoriesLimit]
	}
	return out
}
