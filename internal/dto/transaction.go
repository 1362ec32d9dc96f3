package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/models"
)

// TransactionRequest is the full create/edit form. For credit purchases the
// amount is derived from OriginalAmount and Installments.
type TransactionRequest struct {
	Amount         *decimal.Decimal `json:"amount"`
	Description    string           `json:"description"`
	Date           string           `json:"date"`
	Type           string           `json:"type"`
	Category       *string          `json:"category"`
	Notes          *string          `json:"notes"`
	IsCredit       bool             `json:"isCredit"`
	OriginalAmount *decimal.Decimal `json:"originalAmount"`
	Installments   *int             `json:"installments"`
}

// QuickAddRequest is the short form; the transaction is dated now.
type QuickAddRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	Category    *string          `json:"category"`
}

// ListTransactionsRequest carries the raw list filters from the query
// string. From and To are calendar dates; To is inclusive.
type ListTransactionsRequest struct {
	Type     string
	From     string
	To       string
	Category string
	Limit    int
}

type TransactionQuery struct {
	Type     *models.TransactionType
	Category *string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}

type PayInstallmentResponse struct {
	Credit  models.Transaction `json:"credit"`
	Payment models.Transaction `json:"payment"`
}

type CSVExport struct {
	Filename string
	Data     []byte
}
