package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func span(start, end string) DateRange {
	return DateRange{Start: day(start), End: day(end)}
}

func TestDateRangeOverlaps(t *testing.T) {
	existing := span("2025-06-01", "2025-06-05")

	tests := []struct {
		name string
		req  DateRange
		want bool
	}{
		{"shared checkout day", span("2025-06-05", "2025-06-08"), true},
		{"shared checkin day", span("2025-05-28", "2025-06-01"), true},
		{"adjacent after", span("2025-06-06", "2025-06-08"), false},
		{"adjacent before", span("2025-05-28", "2025-05-31"), false},
		{"contained", span("2025-06-02", "2025-06-03"), true},
		{"containing", span("2025-05-01", "2025-07-01"), true},
		{"identical", span("2025-06-01", "2025-06-05"), true},
		{"single day inside", span("2025-06-03", "2025-06-03"), true},
		{"far away", span("2025-08-01", "2025-08-10"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, existing.Overlaps(tt.req))
			require.Equal(t, tt.want, tt.req.Overlaps(existing), "overlap must be symmetric")
		})
	}
}

func TestCreateBookingRequestValidate(t *testing.T) {
	estate := uuid.New()

	tests := []struct {
		name    string
		req     CreateBookingRequest
		wantErr string
		window  *DateRange
	}{
		{
			name:   "valid rent",
			req:    CreateBookingRequest{EstateID: estate, Type: "RENT ", Amount: 100, StartDate: "2025-06-01", EndDate: "2025-06-05"},
			window: &DateRange{Start: day("2025-06-01"), End: day("2025-06-05")},
		},
		{
			name: "valid buy ignores dates",
			req:  CreateBookingRequest{EstateID: estate, Type: "buy", Amount: 5000},
		},
		{
			name:    "missing dates",
			req:     CreateBookingRequest{EstateID: estate, Type: "rent", Amount: 1},
			wantErr: "require startDate and endDate",
		},
		{
			name:    "start equals end",
			req:     CreateBookingRequest{EstateID: estate, Type: "rent", StartDate: "2025-06-01", EndDate: "2025-06-01"},
			wantErr: "startDate must be before endDate",
		},
		{
			name:    "reversed window",
			req:     CreateBookingRequest{EstateID: estate, Type: "rent", StartDate: "2025-06-05", EndDate: "2025-06-01"},
			wantErr: "startDate must be before endDate",
		},
		{
			name:    "bad date",
			req:     CreateBookingRequest{EstateID: estate, Type: "rent", StartDate: "06/01/2025", EndDate: "2025-06-05"},
			wantErr: "startDate must be a YYYY-MM-DD date",
		},
		{
			name:    "unknown type",
			req:     CreateBookingRequest{EstateID: estate, Type: "lease"},
			wantErr: "transaction_type must be one of",
		},
		{
			name:    "negative amount",
			req:     CreateBookingRequest{EstateID: estate, Type: "buy", Amount: -1},
			wantErr: "amount cannot be negative",
		},
		{
			name:    "missing estate",
			req:     CreateBookingRequest{Type: "buy"},
			wantErr: "estate_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			window, err := tt.req.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Equal(t, KindValidation, KindOf(err))
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.window, window)
		})
	}
}

func TestBookingBlocksCalendar(t *testing.T) {
	start, end := day("2025-06-01"), day("2025-06-05")
	canceled := time.Now()

	require.True(t, (&Booking{Type: BookingRent, StartDate: &start, EndDate: &end}).BlocksCalendar())
	require.False(t, (&Booking{Type: BookingBuy}).BlocksCalendar())
	require.False(t, (&Booking{Type: BookingRent, StartDate: &start, EndDate: &end, CanceledAt: &canceled}).BlocksCalendar())
}

func TestBookingJSONUsesCalendarDays(t *testing.T) {
	start, end := day("2025-06-01"), day("2025-06-05")
	b := Booking{ID: uuid.New(), Type: BookingRent, StartDate: &start, EndDate: &end}

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "2025-06-01", got["startDate"])
	require.Equal(t, "2025-06-05", got["endDate"])
	require.Equal(t, "rent", got["transaction_type"])
}
