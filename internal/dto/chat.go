package dto

import (
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/reports"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest mirrors what the web client sends. Transactions and
// FinancialSummary are optional; the server fills them from the store.
type ChatRequest struct {
	SessionID        string               `json:"sessionId"`
	Messages         []ChatMessage        `json:"messages"`
	Transactions     []models.Transaction `json:"transactions"`
	FinancialSummary *reports.Summary     `json:"financialSummary"`
}

// LLMStreamRequest is the provider-neutral input to a streaming completion.
type LLMStreamRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	Temperature *float32
}

// LLMChunk is one streamed delta. Reasoning is set by providers that report
// thinking out of band instead of inline <think> tags.
type LLMChunk struct {
	Content   string
	Reasoning string
}

// ChatEventKind names the server-sent event types of a chat stream.
type ChatEventKind string

const (
	ChatEventThinking ChatEventKind = "thinking"
	ChatEventAnswer   ChatEventKind = "answer"
	ChatEventDone     ChatEventKind = "done"
	ChatEventError    ChatEventKind = "error"
)

type ChatEvent struct {
	Kind ChatEventKind
	Text string
}
