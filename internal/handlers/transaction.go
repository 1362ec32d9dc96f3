package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/middleware"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/response"
)

type TransactionService interface {
	Create(ctx context.Context, uid string, req dto.TransactionRequest) (models.Transaction, error)
	QuickAdd(ctx context.Context, uid string, req dto.QuickAddRequest) (models.Transaction, error)
	Get(ctx context.Context, uid, id string) (models.Transaction, error)
	Update(ctx context.Context, uid, id string, req dto.TransactionRequest) (models.Transaction, error)
	Delete(ctx context.Context, uid, id string) error
	List(ctx context.Context, uid string, req dto.ListTransactionsRequest) ([]models.Transaction, error)
	PayInstallment(ctx context.Context, uid, id string) (dto.PayInstallmentResponse, error)
	Export(ctx context.Context, uid string, req dto.ListTransactionsRequest) (dto.CSVExport, error)
}

type transactionHandlers struct {
	ResponseHandler response.ResponseHandler
	TransactionSvc  TransactionService
}

func NewTransactionHandlers(deps *Deps) *transactionHandlers {
	return &transactionHandlers{
		ResponseHandler: deps.ResponseHandler,
		TransactionSvc:  deps.TransactionSvc,
	}
}

func (h *transactionHandlers) TransactionRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/quick", h.QuickAdd)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/installments", h.PayInstallment)
	return r
}

func (h *transactionHandlers) List(w http.ResponseWriter, r *http.Request) {
	req, err := listRequest(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	txs, err := h.TransactionSvc.List(r.Context(), middleware.UID(r.Context()), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, txs)
}

func (h *transactionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var body dto.TransactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	tx, err := h.TransactionSvc.Create(r.Context(), middleware.UID(r.Context()), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, tx)
}

func (h *transactionHandlers) QuickAdd(w http.ResponseWriter, r *http.Request) {
	var body dto.QuickAddRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	tx, err := h.TransactionSvc.QuickAdd(r.Context(), middleware.UID(r.Context()), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, tx)
}

func (h *transactionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.TransactionSvc.Get(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, tx)
}

func (h *transactionHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var body dto.TransactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	tx, err := h.TransactionSvc.Update(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "id"), body)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, tx)
}

func (h *transactionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.TransactionSvc.Delete(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *transactionHandlers) PayInstallment(w http.ResponseWriter, r *http.Request) {
	resp, err := h.TransactionSvc.PayInstallment(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *transactionHandlers) Export(w http.ResponseWriter, r *http.Request) {
	req, err := listRequest(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	export, err := h.TransactionSvc.Export(r.Context(), middleware.UID(r.Context()), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

func listRequest(r *http.Request) (dto.ListTransactionsRequest, error) {
	q := r.URL.Query()
	req := dto.ListTransactionsRequest{
		Type:     q.Get("type"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Category: q.Get("category"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return req, errs.NewValidationError("limit", "limit must be a number")
		}
		req.Limit = limit
	}
	return req, nil
}
