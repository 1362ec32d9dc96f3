package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/finance-ledger/internal/handlers"
	"github.com/GregMSThompson/finance-ledger/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := middleware.NewMiddleware(deps.Firebase, deps.ResponseHandler)
	th := handlers.NewTransactionHandlers(deps)
	rh := handlers.NewReportsHandlers(deps)
	ch := handlers.NewChatHandlers(deps)
	ph := handlers.NewProfileHandlers(deps)

	r.Group(func(r chi.Router) {
		r.Use(mw.FirebaseAuth)
		r.Mount("/transactions", th.TransactionRoutes())
		r.Mount("/reports", rh.ReportsRoutes())
		r.Mount("/ai", ch.ChatRoutes())
		r.Mount("/profile", ph.ProfileRoutes())
	})
	return r
}
