package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/credit"
	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/pkg/helpers"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

const dateLayout = "2006-01-02"

type transactionStore interface {
	Create(ctx context.Context, uid string, t models.Transaction) (models.Transaction, error)
	CreateWithPayment(ctx context.Context, uid string, t models.Transaction, payment func(models.Transaction) models.Transaction) (models.Transaction, models.Transaction, error)
	Get(ctx context.Context, uid, id string) (models.Transaction, error)
	Update(ctx context.Context, uid string, t models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, uid, id string) error
	PayInstallment(ctx context.Context, uid, id string, pay func(models.Transaction) (models.Transaction, models.Transaction, error)) (models.Transaction, models.Transaction, error)
	Query(ctx context.Context, uid string, q dto.TransactionQuery, handle func(*models.Transaction) error) error
}

type transactionService struct {
	store    transactionStore
	clockNow func() time.Time
}

func NewTransactionService(store transactionStore, loc *time.Location) *transactionService {
	return &transactionService{
		store:    store,
		clockNow: func() time.Time { return time.Now().In(loc) },
	}
}

// Create stores a full-form transaction. A credit purchase is amortized and
// its first installment is recorded as a plain expense alongside it.
func (s *transactionService) Create(ctx context.Context, uid string, req dto.TransactionRequest) (models.Transaction, error) {
	log := logger.FromContext(ctx)

	tx, plan, err := s.buildTransaction(req)
	if err != nil {
		return models.Transaction{}, err
	}

	if plan == nil {
		created, err := s.store.Create(ctx, uid, tx)
		if err != nil {
			log.Error("failed to create transaction", "error", err)
			return models.Transaction{}, err
		}
		log.Info("transaction created", "transaction_id", created.ID, "type", created.Type)
		return created, nil
	}

	created, first, err := s.store.CreateWithPayment(ctx, uid, tx, credit.FirstPayment)
	if err != nil {
		log.Error("failed to create credit purchase", "error", err)
		return models.Transaction{}, err
	}
	log.Info("credit purchase created",
		"transaction_id", created.ID,
		"installments", plan.Installments,
		"first_payment_id", first.ID)
	return created, nil
}

// QuickAdd records a plain transaction dated now.
func (s *transactionService) QuickAdd(ctx context.Context, uid string, req dto.QuickAddRequest) (models.Transaction, error) {
	return s.Create(ctx, uid, dto.TransactionRequest{
		Amount:      req.Amount,
		Description: req.Description,
		Date:        s.clockNow().Format(time.RFC3339),
		Type:        req.Type,
		Category:    req.Category,
	})
}

func (s *transactionService) Get(ctx context.Context, uid, id string) (models.Transaction, error) {
	return s.store.Get(ctx, uid, id)
}

// Update replaces the transaction with the submitted form. For credit
// purchases the installments already paid carry over to the new terms.
func (s *transactionService) Update(ctx context.Context, uid, id string, req dto.TransactionRequest) (models.Transaction, error) {
	log := logger.FromContext(ctx)

	existing, err := s.store.Get(ctx, uid, id)
	if err != nil {
		return models.Transaction{}, err
	}

	tx, plan, err := s.buildTransaction(req)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.ID = existing.ID
	if plan != nil && existing.IsCreditPurchase() {
		paid := helpers.Value(existing.Installments) - helpers.Value(existing.RemainingInstallments)
		tx.RemainingInstallments = helpers.Ptr(max(0, plan.Installments-paid))
	}

	updated, err := s.store.Update(ctx, uid, tx)
	if err != nil {
		log.Error("failed to update transaction", "transaction_id", id, "error", err)
		return models.Transaction{}, err
	}
	log.Info("transaction updated", "transaction_id", id)
	return updated, nil
}

func (s *transactionService) Delete(ctx context.Context, uid, id string) error {
	if err := s.store.Delete(ctx, uid, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("transaction deleted", "transaction_id", id)
	return nil
}

func (s *transactionService) List(ctx context.Context, uid string, req dto.ListTransactionsRequest) ([]models.Transaction, error) {
	q, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}
	return collectTransactions(ctx, s.store, uid, q)
}

// Export renders the filtered transactions as CSV, oldest first.
func (s *transactionService) Export(ctx context.Context, uid string, req dto.ListTransactionsRequest) (dto.CSVExport, error) {
	txs, err := s.List(ctx, uid, req)
	if err != nil {
		return dto.CSVExport{}, err
	}
	slices.Reverse(txs)

	now := s.clockNow()
	data, err := encodeCSV(txs, now.Location())
	if err != nil {
		return dto.CSVExport{}, err
	}

	logger.FromContext(ctx).Info("transactions exported", "count", len(txs))
	return dto.CSVExport{
		Filename: "transactions-" + now.Format(dateLayout) + ".csv",
		Data:     data,
	}, nil
}

// PayInstallment records the next installment of a credit purchase.
func (s *transactionService) PayInstallment(ctx context.Context, uid, id string) (dto.PayInstallmentResponse, error) {
	log := logger.FromContext(ctx)

	updated, payment, err := s.store.PayInstallment(ctx, uid, id, func(current models.Transaction) (models.Transaction, models.Transaction, error) {
		return credit.Pay(current, s.clockNow())
	})
	if err != nil {
		return dto.PayInstallmentResponse{}, err
	}

	log.Info("installment paid",
		"transaction_id", id,
		"payment_id", payment.ID,
		"remaining", helpers.Value(updated.RemainingInstallments))
	return dto.PayInstallmentResponse{Credit: updated, Payment: payment}, nil
}

// buildTransaction validates a form and normalizes it into a record. The
// returned plan is non-nil for credit purchases.
func (s *transactionService) buildTransaction(req dto.TransactionRequest) (models.Transaction, *credit.Plan, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return models.Transaction{}, nil, errs.NewValidationError("description", "description is required")
	}

	kind := models.TransactionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !kind.Valid() {
		return models.Transaction{}, nil, errs.NewValidationError("type", "type must be income or expense")
	}

	date, err := parseDate(req.Date, s.clockNow().Location())
	if err != nil {
		return models.Transaction{}, nil, err
	}

	tx := models.Transaction{
		Description: description,
		Date:        date,
		Type:        kind,
		Category:    helpers.OptString(req.Category),
		Notes:       helpers.OptString(req.Notes),
	}

	if !req.IsCredit {
		amount, err := requirePositive("amount", req.Amount)
		if err != nil {
			return models.Transaction{}, nil, err
		}
		tx.Amount = amount
		return tx, nil, nil
	}

	if kind != models.TransactionExpense {
		return models.Transaction{}, nil, errs.NewValidationError("isCredit", "only expenses can be credit purchases")
	}
	original := req.OriginalAmount
	if original == nil {
		original = req.Amount
	}
	total, err := requirePositive("originalAmount", original)
	if err != nil {
		return models.Transaction{}, nil, err
	}
	if req.Installments == nil {
		return models.Transaction{}, nil, errs.NewValidationError("installments", "installments is required for credit purchases")
	}
	plan, err := credit.Amortize(total, *req.Installments)
	if err != nil {
		return models.Transaction{}, nil, err
	}
	plan.Apply(&tx)
	return tx, &plan, nil
}

func (s *transactionService) buildQuery(req dto.ListTransactionsRequest) (dto.TransactionQuery, error) {
	var q dto.TransactionQuery
	loc := s.clockNow().Location()

	if v := strings.TrimSpace(req.Type); v != "" {
		kind := models.TransactionType(strings.ToLower(v))
		if !kind.Valid() {
			return q, errs.NewValidationError("type", "type must be income or expense")
		}
		q.Type = &kind
	}
	if v := strings.TrimSpace(req.From); v != "" {
		from, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return q, errs.NewValidationError("from", "from must be YYYY-MM-DD")
		}
		q.DateFrom = &from
	}
	if v := strings.TrimSpace(req.To); v != "" {
		to, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			return q, errs.NewValidationError("to", "to must be YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
		q.DateTo = &to
	}
	if q.DateFrom != nil && q.DateTo != nil && !q.DateFrom.Before(*q.DateTo) {
		return q, errs.NewValidationError("to", "to must not be before from")
	}
	if req.Limit < 0 {
		return q, errs.NewValidationError("limit", "limit must not be negative")
	}
	q.Category = helpers.OptString(&req.Category)
	q.Limit = req.Limit
	return q, nil
}

func requirePositive(field string, amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, errs.NewValidationError(field, field+" is required")
	}
	rounded := amount.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, errs.NewValidationError(field, field+" must be at least 0.01")
	}
	return rounded, nil
}

// parseDate accepts a calendar date, taken as midnight in loc, or RFC 3339.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errs.NewValidationError("date", "date is required")
	}
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, errs.NewValidationError("date", "date must be YYYY-MM-DD or RFC 3339")
}

func collectTransactions(ctx context.Context, store transactionReader, uid string, q dto.TransactionQuery) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	err := store.Query(ctx, uid, q, func(tx *models.Transaction) error {
		txs = append(txs, *tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}
