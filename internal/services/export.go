package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/pkg/helpers"
)

var csvHeader = []string{"Date", "Description", "Category", "Type", "Amount"}

// encodeCSV writes one row per transaction. encoding/csv doubles embedded
// quotes and quotes fields containing separators.
func encodeCSV(txs []models.Transaction, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range txs {
		tx := &txs[i]
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.In(loc).Format(dateLayout)
		}
		record := []string{
			date,
			tx.Description,
			helpers.Value(tx.Category),
			string(tx.Type),
			tx.Amount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
