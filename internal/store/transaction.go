package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/database"
	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

const transactionColumns = `id::text, user_id, amount, description, date, type, category, notes,
	created_at, is_credit, installments, original_amount, remaining_installments`

type transactionStore struct {
	db *database.DB
}

func NewTransactionStore(db *database.DB) *transactionStore {
	return &transactionStore{db: db}
}

func (s *transactionStore) Create(ctx context.Context, uid string, t models.Transaction) (models.Transaction, error) {
	var created models.Transaction
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		var err error
		created, err = insertTransaction(ctx, tx, uid, t)
		return err
	})
	if err != nil {
		return models.Transaction{}, errs.NewDatabaseError("create", "failed to create transaction", err)
	}
	return created, nil
}

// CreateWithPayment inserts t and the payment derived from the stored row in
// one database transaction.
func (s *transactionStore) CreateWithPayment(ctx context.Context, uid string, t models.Transaction, payment func(models.Transaction) models.Transaction) (models.Transaction, models.Transaction, error) {
	var created, paid models.Transaction
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		var err error
		if created, err = insertTransaction(ctx, tx, uid, t); err != nil {
			return err
		}
		paid, err = insertTransaction(ctx, tx, uid, payment(created))
		return err
	})
	if err != nil {
		return models.Transaction{}, models.Transaction{}, errs.NewDatabaseError("create", "failed to create credit purchase", err)
	}
	return created, paid, nil
}

func (s *transactionStore) Get(ctx context.Context, uid, id string) (models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Transaction{}, errs.NewNotFoundError("transaction not found")
	}

	var out models.Transaction
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		var err error
		out, err = scanTransaction(tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, uid))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, errs.NewNotFoundError("transaction not found")
	}
	if err != nil {
		return models.Transaction{}, errs.NewDatabaseError("read", "failed to get transaction", err)
	}
	return out, nil
}

// Update replaces every user-editable column. Last write wins.
func (s *transactionStore) Update(ctx context.Context, uid string, t models.Transaction) (models.Transaction, error) {
	if _, err := uuid.Parse(t.ID); err != nil {
		return models.Transaction{}, errs.NewNotFoundError("transaction not found")
	}

	var out models.Transaction
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		var err error
		out, err = scanTransaction(tx.QueryRow(ctx, `
			UPDATE transactions
			SET amount = $3, description = $4, date = $5, type = $6, category = $7, notes = $8,
				is_credit = $9, installments = $10, original_amount = $11, remaining_installments = $12
			WHERE id = $1 AND user_id = $2
			RETURNING `+transactionColumns,
			t.ID, uid, t.Amount, t.Description, t.Date, string(t.Type), t.Category, t.Notes,
			t.IsCredit, t.Installments, nullDecimal(t.OriginalAmount), t.RemainingInstallments,
		))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, errs.NewNotFoundError("transaction not found")
	}
	if err != nil {
		return models.Transaction{}, errs.NewDatabaseError("update", "failed to update transaction", err)
	}
	return out, nil
}

func (s *transactionStore) Delete(ctx context.Context, uid, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.NewNotFoundError("transaction not found")
	}

	var affected int64
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, uid)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return errs.NewDatabaseError("delete", "failed to delete transaction", err)
	}
	if affected == 0 {
		return errs.NewNotFoundError("transaction not found")
	}
	return nil
}

// PayInstallment locks the credit purchase, applies pay to it and persists
// both the decremented purchase and the new payment row, or neither.
func (s *transactionStore) PayInstallment(ctx context.Context, uid, id string, pay func(models.Transaction) (models.Transaction, models.Transaction, error)) (models.Transaction, models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Transaction{}, models.Transaction{}, errs.NewNotFoundError("transaction not found")
	}

	var updated, payment models.Transaction
	var domainErr error
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		current, err := scanTransaction(tx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, uid))
		if err != nil {
			return err
		}

		next, pending, err := pay(current)
		if err != nil {
			domainErr = err
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE transactions SET remaining_installments = $3 WHERE id = $1 AND user_id = $2`,
			id, uid, next.RemainingInstallments)
		if err != nil {
			return err
		}
		updated = next

		payment, err = insertTransaction(ctx, tx, uid, pending)
		return err
	})
	switch {
	case domainErr != nil:
		return models.Transaction{}, models.Transaction{}, domainErr
	case errors.Is(err, pgx.ErrNoRows):
		return models.Transaction{}, models.Transaction{}, errs.NewNotFoundError("transaction not found")
	case err != nil:
		logger.FromContext(ctx).Error("installment payment rolled back", "transaction_id", id, "error", err)
		return models.Transaction{}, models.Transaction{}, errs.NewDatabaseError("update", "failed to record installment payment", err)
	}
	return updated, payment, nil
}

// Query streams the user's transactions, newest first, to handle. Returning
// an error from handle stops the iteration and is passed through.
func (s *transactionStore) Query(ctx context.Context, uid string, q dto.TransactionQuery, handle func(*models.Transaction) error) error {
	sql, args := buildQuery(uid, q)

	var handleErr error
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			if err := handle(&t); err != nil {
				handleErr = err
				return err
			}
		}
		return rows.Err()
	})
	if handleErr != nil {
		return handleErr
	}
	if err != nil {
		return errs.NewDatabaseError("read", "failed to query transactions", err)
	}
	return nil
}

func buildQuery(uid string, q dto.TransactionQuery) (string, []any) {
	var sb strings.Builder
	args := []any{uid}
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`)

	if q.Type != nil {
		args = append(args, string(*q.Type))
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}
	if q.Category != nil {
		args = append(args, strings.ToLower(strings.TrimSpace(*q.Category)))
		fmt.Fprintf(&sb, " AND lower(btrim(category)) = $%d", len(args))
	}
	if q.DateFrom != nil {
		args = append(args, *q.DateFrom)
		fmt.Fprintf(&sb, " AND date >= $%d", len(args))
	}
	if q.DateTo != nil {
		args = append(args, *q.DateTo)
		fmt.Fprintf(&sb, " AND date < $%d", len(args))
	}
	sb.WriteString(" ORDER BY date DESC, created_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

func insertTransaction(ctx context.Context, tx pgx.Tx, uid string, t models.Transaction) (models.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, description, date, type, category, notes,
			is_credit, installments, original_amount, remaining_installments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+transactionColumns,
		uid, t.Amount, t.Description, t.Date, string(t.Type), t.Category, t.Notes,
		t.IsCredit, t.Installments, nullDecimal(t.OriginalAmount), t.RemainingInstallments,
	))
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var (
		t        models.Transaction
		kind     string
		original decimal.NullDecimal
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Description, &t.Date, &kind, &t.Category, &t.Notes,
		&t.CreatedAt, &t.IsCredit, &t.Installments, &original, &t.RemainingInstallments,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	t.Type = models.TransactionType(kind)
	if original.Valid {
		t.OriginalAmount = &original.Decimal
	}
	return t, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
