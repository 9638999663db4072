package handlers

import (
	"net/http"

	"github.com/yuki-disu/PPD-back/internal/domain"
)

func (h *Handlers) ListEstates(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.EstateFilter{
		ForRent:      parseBoolParam(r, "for_rent"),
		VisibleHouse: parseBoolParam(r, "visibleHouse"),
		Limit:        limit,
		Offset:       offset,
	}

	estates, err := h.estateService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, "estates", estates)
}

func (h *Handlers) GetEstate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	estate, err := h.estateService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"estate": estate})
}

func (h *Handlers) CreateEstate(w http.ResponseWriter, r *http.Request) {
	var in domain.EstateInput
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	estate, err := h.estateService.Create(r.Context(), CurrentUser(r.Context()), &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"estate": estate})
}

func (h *Handlers) UpdateEstate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var upd domain.EstateUpdate
	if err := decodeJSON(w, r, &upd, true); err != nil {
		writeServiceError(w, r, err)
		return
	}

	estate, err := h.estateService.Update(r.Context(), CurrentUser(r.Context()), id, &upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"estate": estate})
}

func (h *Handlers) DeleteEstate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.estateService.Delete(r.Context(), CurrentUser(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
