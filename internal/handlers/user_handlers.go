package handlers

import (
	"net/http"

	"github.com/yuki-disu/PPD-back/internal/domain"
)

func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"user": CurrentUser(r.Context()).ToUserInfo()})
}

// UpdateMe changes profile fields. Password fields, or anything else not on
// the allowed list, are rejected.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateMeRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeServiceError(w, r, err)
		return
	}

	user, err := h.userService.UpdateMe(r.Context(), CurrentUser(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user.ToUserInfo()})
}

func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteMeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.userService.DeleteMe(r.Context(), CurrentUser(r.Context()), &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles listing all users (admin only)
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := h.userService.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	infos := make([]*domain.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].ToUserInfo())
	}
	writeList(w, "users", infos)
}
