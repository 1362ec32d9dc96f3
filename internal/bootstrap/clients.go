package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	gcpkms "cloud.google.com/go/kms/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"

	openaiclient "github.com/GregMSThompson/finance-ledger/internal/client/openai"
	vertexclient "github.com/GregMSThompson/finance-ledger/internal/client/vertex"
	"github.com/GregMSThompson/finance-ledger/internal/config"
	"github.com/GregMSThompson/finance-ledger/internal/database"
	"github.com/GregMSThompson/finance-ledger/internal/secrets"
)

// ResolveSecrets replaces sm:// references in cfg with their Secret Manager
// values. No client is created when nothing needs resolving.
func ResolveSecrets(ctx context.Context, cfg *config.Config) error {
	needed := false
	for _, v := range cfg.SecretRefs() {
		if secrets.IsReference(*v) {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("secret manager client: %w", err)
	}
	defer client.Close()

	return secrets.NewResolver(client, cfg.ProjectID).ResolveAll(ctx, cfg.SecretRefs()...)
}

func InitDatabase(ctx context.Context, url string, log *slog.Logger) (*database.DB, error) {
	db, err := database.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InitKMS(ctx context.Context) (*gcpkms.KeyManagementClient, error) {
	return gcpkms.NewKeyManagementClient(ctx)
}

// InitLLM builds the configured completion adapter. The returned close func
// is nil when the adapter holds no resources.
func InitLLM(ctx context.Context, cfg *config.Config, log *slog.Logger) (LLMStreamer, func() error, error) {
	switch cfg.LLMProvider {
	case config.ProviderVertex:
		adapter, err := vertexclient.NewAdapter(ctx, log, cfg.ProjectID, cfg.Region, cfg.VertexModel)
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter.Close, nil
	default:
		return openaiclient.NewAdapter(log, cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel), nil, nil
	}
}
