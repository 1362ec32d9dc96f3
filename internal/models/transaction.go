package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is one row of the user's ledger. For a credit purchase Amount
// is the per-installment amount and OriginalAmount the full price.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Type        TransactionType `json:"type"`
	Category    *string         `json:"category,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`

	IsCredit              bool             `json:"isCredit"`
	Installments          *int             `json:"installments,omitempty"`
	OriginalAmount        *decimal.Decimal `json:"originalAmount,omitempty"`
	RemainingInstallments *int             `json:"remainingInstallments,omitempty"`
}

// IsCreditPurchase reports whether t is the amortized record of a credit
// purchase. Such rows are excluded from cash-flow expense totals; their
// installment payments are plain expenses and count instead.
func (t *Transaction) IsCreditPurchase() bool {
	return t.Type == TransactionExpense && t.IsCredit
}

// CategoryKey is the case-insensitive grouping key, empty when uncategorized.
func (t *Transaction) CategoryKey() string {
	if t.Category == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*t.Category))
}
