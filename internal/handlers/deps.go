package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/finance-ledger/internal/response"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	TransactionSvc  TransactionService
	ReportsSvc      ReportsService
	ChatSvc         ChatService
	ProfileSvc      ProfileService
	Firebase        *auth.Client
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
