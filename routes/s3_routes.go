package routes

import (
	"studysync/controllers"
	"studysync/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// RegisterS3Routes sets up profile picture upload routes under /api/uploads
func RegisterS3Routes(r *mux.Router, uploads *services.UploadService, store sessions.Store, log zerolog.Logger) {
	controller := controllers.NewUploadController(uploads, log)

	uploadRouter := r.PathPrefix("/api/uploads").Subrouter()
	uploadRouter.Use(RequireSession(store))

	uploadRouter.HandleFunc("/profile-picture", controller.GeneratePresignedURL).Methods("POST")
	uploadRouter.HandleFunc("/read-url", controller.GetPresignedReadURL).Methods("POST")
}
