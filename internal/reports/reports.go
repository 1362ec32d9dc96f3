// Package reports derives every dashboard view from a flat list of one
// user's transactions. All functions are pure and tolerate empty input and
// records without a usable date, which are skipped individually.
package reports

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const (
	monthLayout = "2006-01"
	yearLayout  = "2006"
	dayLayout   = "2006-01-02"
)

var hundred = decimal.NewFromInt(100)

// Undated counts records that every report skips.
func Undated(txs []models.Transaction) int {
	n := 0
	for i := range txs {
		if txs[i].Date.IsZero() {
			n++
		}
	}
	return n
}

// dated calls fn for every transaction with a usable date, converted to loc.
func dated(txs []models.Transaction, loc *time.Location, fn func(tx *models.Transaction, date time.Time)) {
	for i := range txs {
		tx := &txs[i]
		if tx.Date.IsZero() {
			continue
		}
		fn(tx, tx.Date.In(loc))
	}
}

// countsAsExpense reports whether tx is a cash-flow expense: credit purchase
// records are represented by their installment payments instead.
func countsAsExpense(tx *models.Transaction) bool {
	return tx.Type == models.TransactionExpense && !tx.IsCredit
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// percent returns part/whole*100 rounded to two places, or 0 when whole is 0.
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
}

// displayName title-cases a normalized category or description key.
func displayName(key string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(key))
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
