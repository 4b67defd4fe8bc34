package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pairchat/internal/handlers"
	"pairchat/internal/middleware"
	"pairchat/internal/observability"
)

func New(
	msgH *handlers.MessageHandler,
	convH *handlers.ConversationHandler,
	wsH http.Handler,
	secret string,
) http.Handler {

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(observability.MetricsMiddleware())
	r.Use(middleware.Recovery())

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(secret))

		p.Post("/api/messages", msgH.SendMessage)
		p.Patch("/api/messages/{messageID}", msgH.EditMessage)
		p.Delete("/api/messages/{messageID}", msgH.DeleteMessage)
		p.Post("/api/messages/{messageID}/reactions", msgH.ReactMessage)

		p.Get("/api/conversations", convH.ListConversations)
		p.Get("/api/conversations/{conversationID}/messages", convH.ListMessages)
		p.Get("/api/unread", convH.UnreadCount)

		p.Handle("/ws", wsH)
	})

	return r
}
