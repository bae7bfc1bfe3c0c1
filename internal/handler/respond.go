package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"sharedrive/internal/auth"
	"sharedrive/internal/domain"
	"sharedrive/internal/logging"
)

type messageResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

type dataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnreadableUpload):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoFile):
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
	case errors.Is(err, auth.ErrInvalidConfirmationToken):
		writeMessage(w, http.StatusBadRequest, "Invalid confirmation token")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, "Invalid Credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "File not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, messageResponse{Status: "fail", Message: "User Already Exist. Please Login"})
	case errors.Is(err, auth.ErrMissingSecret):
		logger.Error(r.Context(), "token secret is not configured")
		writeMessage(w, http.StatusInternalServerError, "Server configuration error")
	default:
		logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
