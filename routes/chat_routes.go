package routes

import (
	"studysync/controllers"
	"studysync/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// RegisterChatRoutes sets up routes for chat-related operations under /api/chat
func RegisterChatRoutes(r *mux.Router, chatService *services.ChatService, store sessions.Store, log zerolog.Logger) {
	controller := controllers.NewChatController(chatService, log)

	chatRouter := r.PathPrefix("/api/chat").Subrouter()
	chatRouter.Use(RequireSession(store))

	chatRouter.HandleFunc("/{matchId:[0-9]+}/messages", controller.HandleGetMessages).Methods("GET")
	chatRouter.HandleFunc("/{matchId:[0-9]+}/messages", controller.HandleSendMessage).Methods("POST")
}
