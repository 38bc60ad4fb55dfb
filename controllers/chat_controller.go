package controllers

import (
	"net/http"

	"studysync/helpers"
	"studysync/services"

	"github.com/rs/zerolog"
)

// ChatController struct
type ChatController struct {
	ChatService *services.ChatService
	Log         zerolog.Logger
}

// NewChatController initializes the chat controller
func NewChatController(service *services.ChatService, log zerolog.Logger) *ChatController {
	return &ChatController{ChatService: service, Log: log}
}

// HandleGetMessages returns the conversation of a match, oldest first
func (c *ChatController) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	matchID, err := helpers.PathInt64(r, "matchId")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "matchId is required")
		return
	}
	userID, _ := helpers.UserIDFrom(r.Context())

	messages, err := c.ChatService.Messages(r.Context(), matchID, userID)
	if err != nil {
		helpers.WriteServiceError(w, c.Log, err, "Failed to fetch messages")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, messages)
}

// HandleSendMessage persists a message and broadcasts it to the match topic
func (c *ChatController) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	matchID, err := helpers.PathInt64(r, "matchId")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "matchId is required")
		return
	}
	var in services.PostMessageInput
	if err := helpers.DecodeJSON(r, &in); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	in.MatchID = matchID

	userID, _ := helpers.UserIDFrom(r.Context())
	if in.SenderID != 0 && in.SenderID != userID {
		helpers.WriteError(w, http.StatusForbidden, "Forbidden", "You can only send messages as yourself")
		return
	}

	msg, created, err := c.ChatService.PostMessage(r.Context(), in)
	if err != nil {
		helpers.WriteServiceError(w, c.Log, err, "Failed to send message")
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	helpers.WriteJSONResponse(w, status, map[string]interface{}{"success": true, "message": msg})
}
