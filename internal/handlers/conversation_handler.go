package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pairchat/internal/application"
	"pairchat/internal/middleware"
	"pairchat/internal/transport"
)

type ConversationHandler struct {
	svc *application.Service
}

func NewConversationHandler(svc *application.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summaries, err := h.svc.ListConversations(ctx, userID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	out := make([]conversationSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, conversationSummaryDTO{
			Conversation: conversationResponse(s.Conversation),
			PeerID:       s.PeerID,
			UnreadCount:  s.UnreadCount,
		})
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

// ListMessages returns the conversation history and, as a side effect,
// marks the other party's delivered messages as read for the requester.
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	conversationID := chi.URLParam(r, "conversationID")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	msgs, err := h.svc.ListMessages(ctx, conversationID, userID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

func (h *ConversationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	count, err := h.svc.UnreadCount(ctx, userID)
	if err != nil {
		transport.DomainError(w, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}
