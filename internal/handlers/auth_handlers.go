package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

// forgotPasswordMessage is returned whether or not the identity exists.
const forgotPasswordMessage = "If an account matches, a reset code has been sent to its email."

// Signup handles user registration
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, session)
}

// Login handles user authentication
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, session)
}

// ForgotPassword emails a recovery code. Unknown identities get the same answer
// as known ones.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	err := h.recoveryService.Issue(r.Context(), &req)
	if errors.Is(err, domain.ErrUserNotFound) {
		logger.InfoContext(r.Context(), "Recovery requested for unknown identity")
		err = nil
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, forgotPasswordMessage)
}

// ResetPassword consumes a recovery code. The code may come in the path or body.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if code := chi.URLParam(r, "code"); code != "" {
		req.Code = code
	}

	session, err := h.recoveryService.Reset(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, session)
}

// UpdateMyPassword changes the password of the signed-in user and returns a
// new token; older tokens stop working.
func (h *Handlers) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	session, err := h.authService.ChangePassword(r.Context(), CurrentUser(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, session)
}
