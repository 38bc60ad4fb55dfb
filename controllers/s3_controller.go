package controllers

import (
	"net/http"

	"studysync/helpers"
	"studysync/services"

	"github.com/rs/zerolog"
)

// UploadController issues presigned S3 URLs for profile pictures
type UploadController struct {
	Uploads *services.UploadService
	Log     zerolog.Logger
}

// NewUploadController creates a new UploadController instance
func NewUploadController(uploads *services.UploadService, log zerolog.Logger) *UploadController {
	return &UploadController{Uploads: uploads, Log: log}
}

// GeneratePresignedURL generates a presigned URL for a profile picture upload
func (uc *UploadController) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := helpers.DecodeJSON(r, &payload); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}

	url, key, err := uc.Uploads.GenerateUploadURL(r.Context(), payload.FileName, payload.FileType)
	if err != nil {
		helpers.WriteServiceError(w, uc.Log, err, "Failed to generate pre-signed URL")
		return
	}
	uc.Log.Debug().Str("key", key).Msg("Generated upload URL")
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url, "fileName": key})
}

// GetPresignedReadURL generates a presigned URL for reading a stored picture
func (uc *UploadController) GetPresignedReadURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key string `json:"key"`
	}
	if err := helpers.DecodeJSON(r, &payload); err != nil || payload.Key == "" {
		helpers.WriteError(w, http.StatusBadRequest, "Bad Request", "Invalid request payload")
		return
	}

	url, err := uc.Uploads.GenerateReadURL(r.Context(), payload.Key)
	if err != nil {
		helpers.WriteServiceError(w, uc.Log, err, "Failed to generate read pre-signed URL")
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url})
}
