package services

import (
	"context"
	"time"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/reports"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

type transactionReader interface {
	Query(ctx context.Context, uid string, q dto.TransactionQuery, handle func(*models.Transaction) error) error
}

type reportsService struct {
	txs      transactionReader
	clockNow func() time.Time
}

func NewReportsService(txs transactionReader, loc *time.Location) *reportsService {
	return &reportsService{
		txs:      txs,
		clockNow: func() time.Time { return time.Now().In(loc) },
	}
}

func (s *reportsService) Overview(ctx context.Context, uid string) (reports.Overview, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return reports.Overview{}, err
	}
	return reports.BuildOverview(txs, s.clockNow()), nil
}

func (s *reportsService) Summary(ctx context.Context, uid string) (reports.Summary, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return reports.Summary{}, err
	}
	return reports.BuildSummary(txs), nil
}

func (s *reportsService) Monthly(ctx context.Context, uid string) ([]reports.MonthTotal, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reports.MonthlyTotals(txs, s.clockNow().Location()), nil
}

func (s *reportsService) Yearly(ctx context.Context, uid string) ([]reports.YearTotal, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reports.YearlyTotals(txs, s.clockNow().Location()), nil
}

func (s *reportsService) Categories(ctx context.Context, uid string, kind reports.CategoryKind) ([]reports.CategoryTotal, error) {
	if kind == "" {
		kind = reports.CategoryExpense
	}
	if !kind.Valid() {
		return nil, errs.NewValidationError("kind", "kind must be income, expense or all")
	}
	txs, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reports.TopCategories(txs, kind), nil
}

func (s *reportsService) Trends(ctx context.Context, uid string) (reports.Trends, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return reports.Trends{}, err
	}
	return reports.SpendingTrends(txs, s.clockNow()), nil
}

func (s *reportsService) Stats(ctx context.Context, uid string) (reports.Stats, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return reports.Stats{}, err
	}
	return reports.TransactionStats(txs, s.clockNow()), nil
}

func (s *reportsService) Daily(ctx context.Context, uid string) ([]reports.DaySpend, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reports.DailySpending(txs, s.clockNow()), nil
}

func (s *reportsService) Recurring(ctx context.Context, uid string) ([]reports.RecurringExpense, error) {
	txs, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return reports.RecurringExpenses(txs), nil
}

// load reads the user's full history. Rows every report will skip are
// logged here once rather than inside the pure functions.
func (s *reportsService) load(ctx context.Context, uid string) ([]models.Transaction, error) {
	txs, err := collectTransactions(ctx, s.txs, uid, dto.TransactionQuery{})
	if err != nil {
		return nil, err
	}
	if n := reports.Undated(txs); n > 0 {
		logger.FromContext(ctx).Warn("skipping transactions without a usable date", "count", n)
	}
	return txs, nil
}
