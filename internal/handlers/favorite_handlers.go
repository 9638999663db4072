package handlers

import (
	"net/http"

	"github.com/yuki-disu/PPD-back/internal/domain"
)

func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	estates, err := h.favoriteService.List(r.Context(), CurrentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, "favorites", estates)
}

func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req domain.FavoriteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	fav, err := h.favoriteService.Add(r.Context(), CurrentUser(r.Context()), req.EstateID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"favorite": fav})
}

func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req domain.FavoriteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.favoriteService.Remove(r.Context(), CurrentUser(r.Context()), req.EstateID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
