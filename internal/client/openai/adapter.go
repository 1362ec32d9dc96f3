package openaiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
)

const serviceName = "llm"

// Adapter streams completions from any OpenAI-compatible endpoint
// (OpenAI, DeepSeek, OpenRouter).
type Adapter struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

func NewAdapter(log *slog.Logger, apiKey, baseURL, model string) *Adapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  model,
		log:    log,
	}
}

// Stream calls emit for every non-empty delta until the upstream stream ends,
// ctx is cancelled, or emit returns an error.
func (a *Adapter) Stream(ctx context.Context, req dto.LLMStreamRequest, emit func(dto.LLMChunk) error) error {
	modelName := req.Model
	if modelName == "" {
		modelName = a.model
	}
	if modelName == "" {
		return fmt.Errorf("llm model is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	creq := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: messages,
		Stream:   true,
	}
	if req.Temperature != nil {
		creq.Temperature = *req.Temperature
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		return mapError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return mapError(err)
		}

		for _, choice := range resp.Choices {
			chunk := dto.LLMChunk{
				Content:   choice.Delta.Content,
				Reasoning: choice.Delta.ReasoningContent,
			}
			if chunk.Content == "" && chunk.Reasoning == "" {
				continue
			}
			if err := emit(chunk); err != nil {
				return err
			}
		}
	}
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return errs.NewExternalServiceError(serviceName, apiErr.Message, transientStatus(apiErr.HTTPStatusCode), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return errs.NewExternalServiceError(serviceName, "completion request failed", transientStatus(reqErr.HTTPStatusCode), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.NewExternalServiceError(serviceName, "completion stream failed", true, err)
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
