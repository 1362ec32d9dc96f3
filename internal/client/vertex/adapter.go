package vertexclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
)

const serviceName = "vertex"

type Adapter struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

func NewAdapter(ctx context.Context, log *slog.Logger, projectID, region, model string) (*Adapter, error) {
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client: client,
		model:  model,
		log:    log,
	}, nil
}

func (a *Adapter) Close() error {
	err := a.client.Close()
	if err != nil && a.log != nil {
		a.log.Error("vertex adapter close failed", "error", err)
	}
	return err
}

// Stream replays the conversation as chat history and streams the reply to
// the final user message.
func (a *Adapter) Stream(ctx context.Context, req dto.LLMStreamRequest, emit func(dto.LLMChunk) error) error {
	modelName := req.Model
	if modelName == "" {
		modelName = a.model
	}
	if modelName == "" {
		return fmt.Errorf("vertex model is required")
	}

	history, last, err := splitConversation(req.Messages)
	if err != nil {
		return err
	}

	model := a.client.GenerativeModel(modelName)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature != nil {
		model.SetTemperature(*req.Temperature)
	}

	session := model.StartChat()
	session.History = history

	iter := session.SendMessageStream(ctx, genai.Text(last))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return mapError(err)
		}
		if text := responseText(resp); text != "" {
			if err := emit(dto.LLMChunk{Content: text}); err != nil {
				return err
			}
		}
	}
}

// splitConversation converts all but the last message into genai history.
// Gemini names the assistant role "model" and has no system turns.
func splitConversation(msgs []dto.ChatMessage) ([]*genai.Content, string, error) {
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != dto.RoleUser {
		return nil, "", errors.New("vertex conversation must end with a user message")
	}

	history := make([]*genai.Content, 0, len(msgs)-1)
	for _, m := range msgs[:len(msgs)-1] {
		role := "user"
		switch m.Role {
		case dto.RoleAssistant:
			role = "model"
		case dto.RoleSystem:
			continue
		}
		if m.Content == "" {
			continue
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history, msgs[len(msgs)-1].Content, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var text string
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return errs.NewExternalServiceError(serviceName, "generation temporarily unavailable", true, err)
	default:
		return errs.NewExternalServiceError(serviceName, "generation failed", false, err)
	}
}
