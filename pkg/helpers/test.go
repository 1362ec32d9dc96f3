package helpers

import (
	"context"
	"log/slog"

	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

// TestCtx returns a context carrying a discarding logger.
func TestCtx() context.Context {
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	return logger.ToContext(context.Background(), log)
}
