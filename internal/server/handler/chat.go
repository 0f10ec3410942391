package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/smartape/apebot/internal/agent"
)

// maxChatBody bounds the chat request body size.
const maxChatBody = 16 << 10

// ChatHandler streams agent responses over Server-Sent Events.
type ChatHandler struct {
	dispatcher *agent.Dispatcher
	logger     *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(dispatcher *agent.Dispatcher, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{dispatcher: dispatcher, logger: logger}
}

type chatRequest struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversation_id"`
}

// Chat accepts one user message and streams the agent's progress as SSE
// frames, one event per dispatcher stage.
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := h.dispatcher.Handle(r.Context(), req.Input, req.ConversationID, func(e agent.Event) error {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("event: " + string(e.Type) + "\n")); err != nil {
			return err
		}
		if _, err := w.Write(append(append([]byte("data: "), payload...), '\n', '\n')); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// The stream is already committed; all we can do is log.
		h.logger.Warn("chat stream aborted", slog.String("error", err.Error()))
	}
}
