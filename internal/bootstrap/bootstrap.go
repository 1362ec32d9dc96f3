package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	gcpkms "cloud.google.com/go/kms/apiv1"
	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/finance-ledger/internal/config"
	"github.com/GregMSThompson/finance-ledger/internal/crypto"
	"github.com/GregMSThompson/finance-ledger/internal/database"
	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

// LLMStreamer is the upstream completion API behind the chat proxy.
type LLMStreamer interface {
	Stream(ctx context.Context, req dto.LLMStreamRequest, emit func(dto.LLMChunk) error) error
}

type Bootstrap struct {
	Log       *slog.Logger
	DB        *database.DB
	Firestore *firestore.Client
	Firebase  *auth.Client
	KMS       *gcpkms.KeyManagementClient
	ChatKMS   *crypto.KMS
	LLM       LLMStreamer

	closers []func() error
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)

	if err = ResolveSecrets(applicationCtx, cfg); err != nil {
		return bs, fmt.Errorf("resolve secrets: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return bs, fmt.Errorf("invalid config: %w", err)
	}

	bs.DB, err = InitDatabase(applicationCtx, cfg.DatabaseURL, bs.Log)
	if err != nil {
		return bs, err
	}
	bs.closers = append(bs.closers, func() error { bs.DB.Close(); return nil })

	bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}
	bs.closers = append(bs.closers, bs.Firestore.Close)

	bs.Firebase, err = InitFirebase(applicationCtx)
	if err != nil {
		return bs, err
	}

	if cfg.ChatKMSKey != "" {
		bs.KMS, err = InitKMS(applicationCtx)
		if err != nil {
			return bs, err
		}
		bs.closers = append(bs.closers, bs.KMS.Close)
		bs.ChatKMS = crypto.NewKMS(bs.KMS, cfg.ChatKMSKey)
	}

	var closeLLM func() error
	bs.LLM, closeLLM, err = InitLLM(applicationCtx, cfg, bs.Log)
	if err != nil {
		return bs, err
	}
	if closeLLM != nil {
		bs.closers = append(bs.closers, closeLLM)
	}

	bs.Log.Info("bootstrap complete", "llm_provider", cfg.LLMProvider, "chat_encryption", bs.ChatKMS != nil)
	return bs, nil
}

// Close releases clients in reverse order of creation.
func (bs *Bootstrap) Close() error {
	var problems []error
	for i := len(bs.closers) - 1; i >= 0; i-- {
		if err := bs.closers[i](); err != nil {
			problems = append(problems, err)
		}
	}
	bs.closers = nil
	return errors.Join(problems...)
}
