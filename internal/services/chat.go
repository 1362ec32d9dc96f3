package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/reports"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

const (
	// promptTransactionLimit caps how much history is embedded in the prompt.
	promptTransactionLimit = 500
	historyLimit           = 50
)

type llmStreamer interface {
	Stream(ctx context.Context, req dto.LLMStreamRequest, emit func(dto.LLMChunk) error) error
}

type chatStore interface {
	SaveTurn(ctx context.Context, uid, sessionID string, msgs ...models.ChatMessage) error
	ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.ChatMessage, error)
}

type inflightStream struct {
	cancel context.CancelFunc
}

type chatService struct {
	llm      llmStreamer
	txs      transactionReader
	store    chatStore
	ttl      time.Duration
	clockNow func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflightStream
}

func NewChatService(llm llmStreamer, txs transactionReader, store chatStore, ttl time.Duration) *chatService {
	return &chatService{
		llm:      llm,
		txs:      txs,
		store:    store,
		ttl:      ttl,
		clockNow: time.Now,
		inflight: make(map[string]*inflightStream),
	}
}

// Stream relays the assistant's reply to emit as thinking and answer events,
// followed by a single done event. A newer Stream for the same user and
// session cancels this one.
func (s *chatService) Stream(ctx context.Context, uid string, req dto.ChatRequest, emit func(dto.ChatEvent) error) error {
	log := logger.FromContext(ctx)

	messages, err := validateMessages(req.Messages)
	if err != nil {
		return err
	}

	ctx, release := s.track(ctx, uid, req.SessionID)
	defer release()

	txs := req.Transactions
	if txs == nil {
		if txs, err = collectTransactions(ctx, s.txs, uid, dto.TransactionQuery{Limit: promptTransactionLimit}); err != nil {
			return err
		}
	}
	summary := req.FinancialSummary
	if summary == nil {
		built := reports.BuildSummary(txs)
		summary = &built
	}

	prompt, err := systemPrompt(txs, *summary, s.clockNow())
	if err != nil {
		return err
	}

	var answer, thinking strings.Builder
	splitter := &thinkSplitter{}
	relay := func(events []dto.ChatEvent) error {
		for _, ev := range events {
			if ev.Kind == dto.ChatEventThinking {
				thinking.WriteString(ev.Text)
			} else {
				answer.WriteString(ev.Text)
			}
			if err := emit(ev); err != nil {
				return err
			}
		}
		return nil
	}

	err = s.llm.Stream(ctx, dto.LLMStreamRequest{System: prompt, Messages: messages}, func(chunk dto.LLMChunk) error {
		if chunk.Reasoning != "" {
			if err := relay([]dto.ChatEvent{{Kind: dto.ChatEventThinking, Text: chunk.Reasoning}}); err != nil {
				return err
			}
		}
		return relay(splitter.Feed(chunk.Content))
	})
	if err != nil {
		log.Warn("chat stream ended early", "session_id", req.SessionID, "error", err)
		return err
	}
	if err := relay(splitter.Flush()); err != nil {
		return err
	}

	if req.SessionID != "" {
		s.archive(ctx, uid, req.SessionID, messages[len(messages)-1].Content, answer.String(), thinking.String())
	}

	log.Info("chat stream completed", "session_id", req.SessionID, "answer_len", answer.Len())
	return emit(dto.ChatEvent{Kind: dto.ChatEventDone})
}

func (s *chatService) History(ctx context.Context, uid, sessionID string) ([]models.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errs.NewValidationError("sessionId", "sessionId is required")
	}
	return s.store.ListMessages(ctx, uid, sessionID, historyLimit)
}

// track registers a cancellable child of ctx for (uid, sessionID), cancelling
// any stream already running there.
func (s *chatService) track(ctx context.Context, uid, sessionID string) (context.Context, func()) {
	key := uid + "/" + sessionID
	ctx, cancel := context.WithCancel(ctx)
	entry := &inflightStream{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.inflight[key] = entry
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.inflight[key] == entry {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel()
	}
}

// archive failures are logged only; the reply has already been delivered.
func (s *chatService) archive(ctx context.Context, uid, sessionID, question, answer, thinking string) {
	now := s.clockNow()
	var expires time.Time
	if s.ttl > 0 {
		expires = now.Add(s.ttl)
	}

	err := s.store.SaveTurn(ctx, uid, sessionID,
		models.ChatMessage{Role: dto.RoleUser, Content: question, CreatedAt: now, ExpiresAt: expires},
		models.ChatMessage{Role: dto.RoleAssistant, Content: answer, Thinking: thinking, CreatedAt: now.Add(time.Millisecond), ExpiresAt: expires},
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to archive chat turn", "session_id", sessionID, "error", err)
	}
}

func validateMessages(in []dto.ChatMessage) ([]dto.ChatMessage, error) {
	out := make([]dto.ChatMessage, 0, len(in))
	for _, m := range in {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch m.Role {
		case dto.RoleUser, dto.RoleAssistant:
			out = append(out, dto.ChatMessage{Role: m.Role, Content: content})
		default:
			return nil, errs.NewValidationError("messages", fmt.Sprintf("unsupported role %q", m.Role))
		}
	}
	if len(out) == 0 {
		return nil, errs.NewValidationError("messages", "at least one message is required")
	}
	if out[len(out)-1].Role != dto.RoleUser {
		return nil, errs.NewValidationError("messages", "last message must be from the user")
	}
	return out, nil
}

func systemPrompt(txs []models.Transaction, summary reports.Summary, now time.Time) (string, error) {
	if len(txs) > promptTransactionLimit {
		txs = txs[:promptTransactionLimit]
	}

	txJSON, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("marshal transactions: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}

	return fmt.Sprintf(`You are a personal finance assistant. Today is %s.
Answer questions using only the user's data below. Amounts are in the user's currency.
Credit purchases (isCredit=true) are amortized: "amount" is one installment and
"originalAmount" the full price; their installment payments are separate expenses.
If the data cannot answer a question, say so.

Financial summary:
%s

Transactions:
%s`, now.Format(dateLayout), summaryJSON, txJSON), nil
}
