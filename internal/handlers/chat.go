package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/middleware"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/internal/response"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

type ChatService interface {
	Stream(ctx context.Context, uid string, req dto.ChatRequest, emit func(dto.ChatEvent) error) error
	History(ctx context.Context, uid, sessionID string) ([]models.ChatMessage, error)
}

type chatHandlers struct {
	ResponseHandler response.ResponseHandler
	ChatSvc         ChatService
}

func NewChatHandlers(deps *Deps) *chatHandlers {
	return &chatHandlers{
		ResponseHandler: deps.ResponseHandler,
		ChatSvc:         deps.ChatSvc,
	}
}

func (h *chatHandlers) ChatRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Get("/sessions/{sessionId}/messages", h.History)
	return r
}

// Chat streams the assistant reply as server-sent events. Errors raised
// before the first event are ordinary JSON errors; later ones become an
// error event since the status line is already written.
func (h *chatHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	var body dto.ChatRequest
	if err := decodeJSON(w, r, &body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	sse := &sseWriter{w: w, rc: http.NewResponseController(w)}
	err := h.ChatSvc.Stream(r.Context(), middleware.UID(r.Context()), body, sse.Send)
	if err == nil {
		return
	}
	if !sse.started {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	logger.FromContext(r.Context()).Warn("chat stream failed", "error", err)
	if sendErr := sse.Send(dto.ChatEvent{Kind: dto.ChatEventError, Text: streamErrorMessage(err)}); sendErr != nil {
		logger.FromContext(r.Context()).Debug("could not deliver error event", "error", sendErr)
	}
}

func (h *chatHandlers) History(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.ChatSvc.History(r.Context(), middleware.UID(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, msgs)
}

type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func (s *sseWriter) Send(ev dto.ChatEvent) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(ev.Text)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func streamErrorMessage(err error) string {
	var external *errs.ExternalServiceError
	if errors.As(err, &external) && external.Transient {
		return "The assistant is busy, please try again shortly."
	}
	return "The assistant could not complete this reply."
}
