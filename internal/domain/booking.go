package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Booking types
const (
	BookingRent = "rent"
	BookingBuy  = "buy"
)

// DateLayout is the calendar-day format used on the wire.
const DateLayout = "2006-01-02"

type Booking struct {
	ID              uuid.UUID
	EstateID        uuid.UUID
	BuyerID         uuid.UUID
	SellerID        uuid.UUID
	Type            string
	Amount          float64
	StartDate       *time.Time
	EndDate         *time.Time
	TransactionDate time.Time
	CanceledAt      *time.Time
}

// Interval returns the closed rental window, if the booking has one.
func (b *Booking) Interval() (DateRange, bool) {
	if b.StartDate == nil || b.EndDate == nil {
		return DateRange{}, false
	}
	return DateRange{Start: *b.StartDate, End: *b.EndDate}, true
}

// BlocksCalendar reports whether the booking takes part in overlap checks.
func (b *Booking) BlocksCalendar() bool {
	return b.Type == BookingRent && b.CanceledAt == nil && b.StartDate != nil && b.EndDate != nil
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type view struct {
		ID              uuid.UUID `json:"id"`
		EstateID        uuid.UUID `json:"estate_id"`
		BuyerID         uuid.UUID `json:"buyer_id"`
		SellerID        uuid.UUID `json:"seller_id"`
		Type            string    `json:"transaction_type"`
		Amount          float64   `json:"amount"`
		StartDate       string    `json:"startDate,omitempty"`
		EndDate         string    `json:"endDate,omitempty"`
		TransactionDate time.Time `json:"transaction_date"`
	}
	v := view{
		ID:              b.ID,
		EstateID:        b.EstateID,
		BuyerID:         b.BuyerID,
		SellerID:        b.SellerID,
		Type:            b.Type,
		Amount:          b.Amount,
		TransactionDate: b.TransactionDate,
	}
	if b.StartDate != nil {
		v.StartDate = b.StartDate.Format(DateLayout)
	}
	if b.EndDate != nil {
		v.EndDate = b.EndDate.Format(DateLayout)
	}
	return json.Marshal(v)
}

// DateRange is a closed interval of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two closed intervals share at least one day.
// A checkout day equal to another check-in day counts as overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}{r.Start.Format(DateLayout), r.End.Format(DateLayout)})
}

// ParseDate parses a YYYY-MM-DD calendar day as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

type CreateBookingRequest struct {
	EstateID  uuid.UUID `json:"estate_id"`
	Type      string    `json:"transaction_type"`
	Amount    float64   `json:"amount"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
}

func (r *CreateBookingRequest) Normalize() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
}

// Validate checks structure and returns the parsed rental window for rent
// requests. Start must be strictly before end.
func (r *CreateBookingRequest) Validate() (*DateRange, error) {
	var v Validator
	v.Check(r.EstateID != uuid.Nil, "estate_id is required")
	v.Check(r.Type == BookingRent || r.Type == BookingBuy, "transaction_type must be one of: rent, buy")
	v.Check(r.Amount >= 0, "amount cannot be negative")

	if r.Type != BookingRent {
		return nil, v.Err()
	}

	if r.StartDate == "" || r.EndDate == "" {
		v.Addf("rental transactions require startDate and endDate")
		return nil, v.Err()
	}
	start, serr := ParseDate(r.StartDate)
	v.Check(serr == nil, "startDate must be a YYYY-MM-DD date")
	end, eerr := ParseDate(r.EndDate)
	v.Check(eerr == nil, "endDate must be a YYYY-MM-DD date")
	if serr == nil && eerr == nil {
		v.Check(start.Before(end), "startDate must be before endDate")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return &DateRange{Start: start, End: end}, nil
}
