package client

import (
	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/reports"
)

// The API's wire types, re-exported so programs outside this module can build
// requests and read responses without importing internal packages.
type (
	Transaction          = models.Transaction
	TransactionType      = models.TransactionType
	ListQuery            = dto.ListTransactionsRequest
	TransactionRequest   = dto.TransactionRequest
	QuickAddRequest      = dto.QuickAddRequest
	PayInstallmentResult = dto.PayInstallmentResponse
	Overview             = reports.Overview
	Summary              = reports.Summary
)

const (
	Income  = models.TransactionIncome
	Expense = models.TransactionExpense
)
