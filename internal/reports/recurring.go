package reports

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const (
	recurringMinOccurrences = 3
	recurringLimit          = 10
)

const (
	FrequencyMonthly    = "Monthly"
	FrequencyQuarterly  = "Quarterly"
	FrequencyOccasional = "Occasional"
)

type RecurringExpense struct {
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Frequency     string          `json:"frequency"`
	Count         int             `json:"count"`
	AverageAmount decimal.Decimal `json:"averageAmount"`
	Total         decimal.Decimal `json:"total"`
}

type recurringGroup struct {
	description string
	count       int
	total       decimal.Decimal
	categories  map[string]int
	catOrder    []string
}

// RecurringExpenses groups cash-flow expenses by trimmed, case-insensitive
// description. Groups with at least three occurrences are returned, ten at
// most, by descending average amount.
func RecurringExpenses(txs []models.Transaction) []RecurringExpense {
	var order []string
	groups := map[string]*recurringGroup{}
	for i := range txs {
		tx := &txs[i]
		if tx.Date.IsZero() || !countsAsExpense(tx) {
			continue
		}
		desc := strings.TrimSpace(tx.Description)
		key := strings.ToLower(desc)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &recurringGroup{description: desc, categories: map[string]int{}}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		g.total = g.total.Add(tx.Amount)
		if cat := tx.CategoryKey(); cat != "" {
			if _, seen := g.categories[cat]; !seen {
				g.catOrder = append(g.catOrder, cat)
			}
			g.categories[cat]++
		}
	}

	var out []RecurringExpense
	for _, key := range order {
		g := groups[key]
		if g.count < recurringMinOccurrences {
			continue
		}
		out = append(out, RecurringExpense{
			Description:   g.description,
			Category:      g.mostCommonCategory(),
			Frequency:     frequencyLabel(g.count),
			Count:         g.count,
			AverageAmount: g.total.Div(decimal.NewFromInt(int64(g.count))).RoundBank(2),
			Total:         g.total,
		})
	}
	if out == nil {
		return []RecurringExpense{}
	}

	slices.SortStableFunc(out, func(a, b RecurringExpense) int { return b.AverageAmount.Cmp(a.AverageAmount) })
	if len(out) > recurringLimit {
		out = out[:recurringLimit]
	}
	return out
}

// first encountered wins ties
func (g *recurringGroup) mostCommonCategory() string {
	best, bestCount := "", 0
	for _, cat := range g.catOrder {
		if g.categories[cat] > bestCount {
			best, bestCount = cat, g.categories[cat]
		}
	}
	if best == "" {
		return ""
	}
	return displayName(best)
}

func frequencyLabel(count int) string {
	switch {
	case count >= 12:
		return FrequencyMonthly
	case count >= 4:
		return FrequencyQuarterly
	default:
		return FrequencyOccasional
	}
}
