package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pairchat/internal/application"
	"pairchat/internal/middleware"
	"pairchat/internal/transport"
)

const requestTimeout = 5 * time.Second

type MessageHandler struct {
	svc *application.Service
}

func NewMessageHandler(svc *application.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		RecipientID    string `json:"recipient_id"`
		ConversationID string `json:"conversation_id"`
		Content        string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}
	if req.RecipientID == "" && req.ConversationID == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing_target", "recipient_id or conversation_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := h.svc.SendMessage(ctx, application.SendMessageCommand{
		SenderID:       userID,
		RecipientID:    req.RecipientID,
		ConversationID: req.ConversationID,
		Content:        req.Content,
	})
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, messageResponse(msg))
}

func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	messageID := chi.URLParam(r, "messageID")

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := h.svc.EditMessage(ctx, application.EditMessageCommand{
		MessageID:   messageID,
		RequesterID: userID,
		Content:     req.Content,
	})
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, messageResponse(msg))
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	messageID := chi.URLParam(r, "messageID")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := h.svc.DeleteMessage(ctx, application.DeleteMessageCommand{
		MessageID:   messageID,
		RequesterID: userID,
	})
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, messageResponse(msg))
}

func (h *MessageHandler) ReactMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	messageID := chi.URLParam(r, "messageID")

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msg, err := h.svc.ReactMessage(ctx, application.ReactMessageCommand{
		MessageID:   messageID,
		RequesterID: userID,
		Emoji:       req.Emoji,
	})
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, messageResponse(msg))
}
