package handlers

import (
	"net/http"

	"github.com/yuki-disu/PPD-back/internal/domain"
)

// CreateTransaction books or buys an estate for the signed-in user.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, r, err)
		return
	}

	booking, err := h.bookingService.Create(r.Context(), CurrentUser(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"transaction": booking})
}

func (h *Handlers) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.ListMine(r.Context(), CurrentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, "transactions", bookings)
}

// RentDays lists the booked rental windows of an estate.
func (h *Handlers) RentDays(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	days, err := h.bookingService.RentCalendar(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, "days", days)
}
