package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-ledger/internal/credit"
	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
)

// --- Stub service ---

type stubTransactionService struct {
	uid        string
	id         string
	createReq  dto.TransactionRequest
	quickReq   dto.QuickAddRequest
	listReq    dto.ListTransactionsRequest
	deleted    bool
	tx         models.Transaction
	pay        dto.PayInstallmentResponse
	export     dto.CSVExport
	err        error
	listResult []models.Transaction
}

func (s *stubTransactionService) Create(_ context.Context, uid string, req dto.TransactionRequest) (models.Transaction, error) {
	s.uid, s.createReq = uid, req
	return s.tx, s.err
}

func (s *stubTransactionService) QuickAdd(_ context.Context, uid string, req dto.QuickAddRequest) (models.Transaction, error) {
	s.uid, s.quickReq = uid, req
	return s.tx, s.err
}

func (s *stubTransactionService) Get(_ context.Context, uid, id string) (models.Transaction, error) {
	s.uid, s.id = uid, id
	return s.tx, s.err
}

func (s *stubTransactionService) Update(_ context.Context, uid, id string, req dto.TransactionRequest) (models.Transaction, error) {
	s.uid, s.id, s.createReq = uid, id, req
	return s.tx, s.err
}

func (s *stubTransactionService) Delete(_ context.Context, uid, id string) error {
	s.uid, s.id = uid, id
	s.deleted = s.err == nil
	return s.err
}

func (s *stubTransactionService) List(_ context.Context, uid string, req dto.ListTransactionsRequest) ([]models.Transaction, error) {
	s.uid, s.listReq = uid, req
	return s.listResult, s.err
}

func (s *stubTransactionService) PayInstallment(_ context.Context, uid, id string) (dto.PayInstallmentResponse, error) {
	s.uid, s.id = uid, id
	return s.pay, s.err
}

func (s *stubTransactionService) Export(_ context.Context, uid string, req dto.ListTransactionsRequest) (dto.CSVExport, error) {
	s.uid, s.listReq = uid, req
	return s.export, s.err
}

func newTestTransactionHandlers(svc *stubTransactionService, resp *stubResponseHandler) *transactionHandlers {
	return NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})
}

// --- Tests ---

func TestCreateTransaction_OK(t *testing.T) {
	svc := &stubTransactionService{tx: models.Transaction{ID: "tx-1"}}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	body := `{"amount":"12.50","description":"Lunch","date":"2025-03-01","type":"expense","category":"Food"}`
	req := withUID(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body)), "uid1")
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected WriteSuccess with 201, got called=%v status=%d", resp.writeSuccessCalled, resp.writeSuccessStatus)
	}
	if svc.uid != "uid1" {
		t.Errorf("uid = %q", svc.uid)
	}
	if !svc.createReq.Amount.Equal(decimal.RequireFromString("12.50")) || svc.createReq.Description != "Lunch" {
		t.Errorf("unexpected request passed to service: %+v", svc.createReq)
	}
}

func TestCreateTransaction_InvalidJSON(t *testing.T) {
	svc := &stubTransactionService{}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader("not-json")), "uid1")
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError on invalid JSON")
	}
	if svc.uid != "" {
		t.Fatal("service should not be called on invalid JSON")
	}
}

func TestQuickAdd_OK(t *testing.T) {
	svc := &stubTransactionService{tx: models.Transaction{ID: "tx-1"}}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	body := `{"amount":"3","description":"Bus","type":"expense"}`
	req := withUID(httptest.NewRequest(http.MethodPost, "/transactions/quick", strings.NewReader(body)), "uid1")
	rr := httptest.NewRecorder()
	h.QuickAdd(rr, req)

	if resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.writeSuccessStatus)
	}
	if svc.quickReq.Description != "Bus" {
		t.Errorf("unexpected quick-add request: %+v", svc.quickReq)
	}
}

func TestListTransactions_ParsesFilters(t *testing.T) {
	svc := &stubTransactionService{listResult: []models.Transaction{{ID: "tx-1"}}}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodGet, "/transactions?type=expense&from=2025-01-01&to=2025-01-31&category=food&limit=20", nil), "uid1")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if !resp.writeSuccessCalled {
		t.Fatal("expected WriteSuccess")
	}
	want := dto.ListTransactionsRequest{Type: "expense", From: "2025-01-01", To: "2025-01-31", Category: "food", Limit: 20}
	if svc.listReq != want {
		t.Errorf("list request = %+v, want %+v", svc.listReq, want)
	}
}

func TestListTransactions_BadLimit(t *testing.T) {
	svc := &stubTransactionService{}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodGet, "/transactions?limit=ten", nil), "uid1")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	var ve *errs.ValidationError
	if !errors.As(resp.handleError, &ve) || ve.Field != "limit" {
		t.Fatalf("expected limit validation error, got %v", resp.handleError)
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	svc := &stubTransactionService{err: errs.NewNotFoundError("transaction not found")}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodGet, "/transactions/tx-9", nil), "uid1")
	req = withChiParam(req, "id", "tx-9")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError")
	}
	if svc.id != "tx-9" {
		t.Errorf("id = %q, want tx-9", svc.id)
	}
}

func TestUpdateTransaction_OK(t *testing.T) {
	svc := &stubTransactionService{tx: models.Transaction{ID: "tx-1"}}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	body := `{"description":"Laptop","date":"2025-03-01","type":"expense","isCredit":true,"originalAmount":"1200","installments":12}`
	req := withUID(httptest.NewRequest(http.MethodPut, "/transactions/tx-1", strings.NewReader(body)), "uid1")
	req = withChiParam(req, "id", "tx-1")
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.writeSuccessStatus)
	}
	if svc.id != "tx-1" || !svc.createReq.IsCredit || *svc.createReq.Installments != 12 {
		t.Errorf("unexpected update: id=%q req=%+v", svc.id, svc.createReq)
	}
}

func TestDeleteTransaction_NoContent(t *testing.T) {
	svc := &stubTransactionService{}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodDelete, "/transactions/tx-1", nil), "uid1")
	req = withChiParam(req, "id", "tx-1")
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if !svc.deleted {
		t.Fatal("expected delete to reach the service")
	}
}

func TestPayInstallment_Exhausted(t *testing.T) {
	svc := &stubTransactionService{err: credit.ErrNoInstallmentsRemaining}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodPost, "/transactions/tx-1/installments", nil), "uid1")
	req = withChiParam(req, "id", "tx-1")
	rr := httptest.NewRecorder()
	h.PayInstallment(rr, req)

	if !errors.Is(resp.handleError, credit.ErrNoInstallmentsRemaining) {
		t.Fatalf("expected ErrNoInstallmentsRemaining, got %v", resp.handleError)
	}
}

func TestPayInstallment_Created(t *testing.T) {
	svc := &stubTransactionService{pay: dto.PayInstallmentResponse{Payment: models.Transaction{ID: "tx-2"}}}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodPost, "/transactions/tx-1/installments", nil), "uid1")
	req = withChiParam(req, "id", "tx-1")
	rr := httptest.NewRecorder()
	h.PayInstallment(rr, req)

	if resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.writeSuccessStatus)
	}
}

func TestExportTransactions_WritesCSV(t *testing.T) {
	svc := &stubTransactionService{export: dto.CSVExport{
		Filename: "transactions-2025-03-10.csv",
		Data:     []byte("Date,Description,Category,Type,Amount\n"),
	}}
	resp := &stubResponseHandler{}
	h := newTestTransactionHandlers(svc, resp)

	req := withUID(httptest.NewRequest(http.MethodGet, "/transactions/export?type=income", nil), "uid1")
	rr := httptest.NewRecorder()
	h.Export(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="transactions-2025-03-10.csv"` {
		t.Errorf("content disposition = %q", cd)
	}
	if rr.Body.String() != "Date,Description,Category,Type,Amount\n" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if svc.listReq.Type != "income" {
		t.Errorf("filters not passed to export: %+v", svc.listReq)
	}
}
