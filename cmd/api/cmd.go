package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GregMSThompson/finance-ledger/internal/bootstrap"
	"github.com/GregMSThompson/finance-ledger/internal/config"
	"github.com/GregMSThompson/finance-ledger/internal/handlers"
	"github.com/GregMSThompson/finance-ledger/internal/response"
	"github.com/GregMSThompson/finance-ledger/internal/router"
	"github.com/GregMSThompson/finance-ledger/internal/services"
	"github.com/GregMSThompson/finance-ledger/internal/store"
)

const shutdownTimeout = 15 * time.Second

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		if log == nil {
			log = slog.Default()
		}
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	if err != nil {
		bs.Close()
	}
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	loc := cfg.Location()

	// stores
	tstore := store.NewTransactionStore(bs.DB)
	pstore := store.NewProfileStore(bs.DB)
	cstore := store.NewChatStore(bs.Firestore, nil)
	if bs.ChatKMS != nil {
		cstore = store.NewChatStore(bs.Firestore, bs.ChatKMS)
	}

	// services
	tserv := services.NewTransactionService(tstore, loc)
	rserv := services.NewReportsService(tstore, loc)
	pserv := services.NewProfileService(pstore)
	cserv := services.NewChatService(bs.LLM, tstore, cstore, cfg.AITTL)

	// response handler
	rh := response.New(bs.Log)

	// dependencies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.TransactionSvc = tserv
	deps.ReportsSvc = rserv
	deps.ProfileSvc = pserv
	deps.ChatSvc = cserv

	// router
	r := router.NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		bs.Log.Info("server listening", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			bs.Close()
			exitOnError("server start failed", err, bs.Log)
		}
	case <-ctx.Done():
		bs.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			bs.Log.Error("graceful shutdown failed", "error", err)
		}
	}
}
