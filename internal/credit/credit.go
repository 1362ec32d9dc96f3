// Package credit amortizes credit purchases into equal installments and
// records installment payments.
package credit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/pkg/helpers"
)

const (
	MinInstallments = 1
	MaxInstallments = 24
)

var (
	ErrNoInstallmentsRemaining = errs.NewConflictError("no installments remaining")
	ErrNotCredit               = errs.NewValidationError("isCredit", "transaction is not a credit purchase")
)

// Plan is the amortized form of a credit purchase. The first installment is
// paid at purchase time, so Remaining starts at Installments-1.
type Plan struct {
	OriginalAmount decimal.Decimal
	Installments   int
	Amount         decimal.Decimal
	Remaining      int
}

func Amortize(original decimal.Decimal, installments int) (Plan, error) {
	if installments < MinInstallments || installments > MaxInstallments {
		return Plan{}, errs.NewValidationError("installments",
			fmt.Sprintf("installments must be between %d and %d", MinInstallments, MaxInstallments))
	}
	if !original.IsPositive() {
		return Plan{}, errs.NewValidationError("originalAmount", "original amount must be greater than zero")
	}

	amount := original.Div(decimal.NewFromInt(int64(installments))).RoundBank(2)
	if !amount.IsPositive() {
		return Plan{}, errs.NewValidationError("originalAmount",
			fmt.Sprintf("original amount is too small for %d installments", installments))
	}

	return Plan{
		OriginalAmount: original,
		Installments:   installments,
		Amount:         amount,
		Remaining:      installments - 1,
	}, nil
}

// Apply writes the plan onto an expense record.
func (p Plan) Apply(tx *models.Transaction) {
	tx.Type = models.TransactionExpense
	tx.IsCredit = true
	tx.Amount = p.Amount
	tx.OriginalAmount = helpers.Ptr(p.OriginalAmount)
	tx.Installments = helpers.Ptr(p.Installments)
	tx.RemainingInstallments = helpers.Ptr(p.Remaining)
}

// FirstPayment is the plain expense for the installment settled at purchase
// time, dated with the purchase.
func FirstPayment(purchase models.Transaction) models.Transaction {
	return payment(purchase, 1, purchase.Date)
}

// Pay moves a credit purchase one installment forward. It returns the updated
// purchase and the new payment record; purchase itself is not modified.
func Pay(purchase models.Transaction, now time.Time) (models.Transaction, models.Transaction, error) {
	if !purchase.IsCreditPurchase() || purchase.Installments == nil {
		return purchase, models.Transaction{}, ErrNotCredit
	}
	remaining := helpers.Value(purchase.RemainingInstallments)
	if remaining <= 0 {
		return purchase, models.Transaction{}, ErrNoInstallmentsRemaining
	}

	total := *purchase.Installments
	number := total - remaining + 1

	updated := purchase
	updated.RemainingInstallments = helpers.Ptr(remaining - 1)
	return updated, payment(purchase, number, now), nil
}

func payment(purchase models.Transaction, number int, date time.Time) models.Transaction {
	return models.Transaction{
		UserID:      purchase.UserID,
		Amount:      purchase.Amount,
		Description: fmt.Sprintf("%s (installment %d/%d)", purchase.Description, number, helpers.Value(purchase.Installments)),
		Date:        date,
		Type:        models.TransactionExpense,
		Category:    purchase.Category,
		Notes:       helpers.Ptr(fmt.Sprintf("Installment payment for transaction %s", purchase.ID)),
	}
}
