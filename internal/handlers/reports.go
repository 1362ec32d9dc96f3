package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/finance-ledger/internal/middleware"
	"github.com/GregMSThompson/finance-ledger/internal/reports"
	"github.com/GregMSThompson/finance-ledger/internal/response"
)

type ReportsService interface {
	Overview(ctx context.Context, uid string) (reports.Overview, error)
	Monthly(ctx context.Context, uid string) ([]reports.MonthTotal, error)
	Yearly(ctx context.Context, uid string) ([]reports.YearTotal, error)
	Categories(ctx context.Context, uid string, kind reports.CategoryKind) ([]reports.CategoryTotal, error)
	Trends(ctx context.Context, uid string) (reports.Trends, error)
	Stats(ctx context.Context, uid string) (reports.Stats, error)
	Daily(ctx context.Context, uid string) ([]reports.DaySpend, error)
	Recurring(ctx context.Context, uid string) ([]reports.RecurringExpense, error)
}

type reportsHandlers struct {
	ResponseHandler response.ResponseHandler
	ReportsSvc      ReportsService
}

func NewReportsHandlers(deps *Deps) *reportsHandlers {
	return &reportsHandlers{
		ResponseHandler: deps.ResponseHandler,
		ReportsSvc:      deps.ReportsSvc,
	}
}

func (h *reportsHandlers) ReportsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/summary", report(h, ReportsService.Overview))
	r.Get("/monthly", report(h, ReportsService.Monthly))
	r.Get("/yearly", report(h, ReportsService.Yearly))
	r.Get("/categories", h.Categories)
	r.Get("/trends", report(h, ReportsService.Trends))
	r.Get("/stats", report(h, ReportsService.Stats))
	r.Get("/daily", report(h, ReportsService.Daily))
	r.Get("/recurring", report(h, ReportsService.Recurring))
	return r
}

func (h *reportsHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	kind := reports.CategoryKind(r.URL.Query().Get("kind"))
	out, err := h.ReportsSvc.Categories(r.Context(), middleware.UID(r.Context()), kind)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, out)
}

// report adapts a parameterless report method into a handler.
func report[T any](h *reportsHandlers, fn func(svc ReportsService, ctx context.Context, uid string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(h.ReportsSvc, r.Context(), middleware.UID(r.Context()))
		if err != nil {
			h.ResponseHandler.HandleError(w, r, err)
			return
		}
		h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, out)
	}
}
