package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sharedrive/internal/domain"
	"sharedrive/internal/logging"
	"sharedrive/internal/service"
)

type UserHandler struct {
	users  *service.UserService
	logger logging.Logger
}

func NewUserHandler(users *service.UserService, logger logging.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Signup handles POST /signup.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input domain.SignupInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Signup(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.LoginInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Login(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// VerifyEmail handles GET /verify/{confirmationToken}.
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.VerifyEmail(r.Context(), chi.URLParam(r, "confirmationToken"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMessage(w, http.StatusConflict, "User Not Found")
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataResponse{Message: "User verified successfully", Data: user})
}
