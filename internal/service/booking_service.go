package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/metrics"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

type BookingService interface {
	Create(ctx context.Context, buyer *domain.User, req *domain.CreateBookingRequest) (*domain.Booking, error)
	ListMine(ctx context.Context, user *domain.User) ([]domain.Booking, error)
	RentCalendar(ctx context.Context, estateID uuid.UUID) ([]domain.DateRange, error)
}

type bookingService struct {
	bookings repository.BookingRepository
	estates  repository.EstateRepository
	eventBus events.Publisher
	opts     options
}

func NewBookingService(
	bookings repository.BookingRepository,
	estates repository.EstateRepository,
	eventBus events.Publisher,
	opts ...Option,
) BookingService {
	return &bookingService{
		bookings: bookings,
		estates:  estates,
		eventBus: eventBus,
		opts:     buildOptions(opts),
	}
}

// Overlaps is the conflict rule for rental windows: closed intervals, so a
// shared boundary day is a conflict.
func Overlaps(a, b domain.DateRange) bool {
	return a.Overlaps(b)
}

func (s *bookingService) Create(ctx context.Context, buyer *domain.User, req *domain.CreateBookingRequest) (*domain.Booking, error) {
	req.Normalize()
	window, err := req.Validate()
	if err != nil {
		s.opts.metrics.RecordBooking(req.Type, metrics.OutcomeInvalid)
		return nil, err
	}

	estate, err := s.estates.FindByID(ctx, req.EstateID)
	if err != nil {
		return nil, internal("find estate", err)
	}
	if estate == nil {
		return nil, domain.ErrEstateNotFound
	}
	if estate.OwnerID == buyer.ID {
		s.opts.metrics.RecordBooking(req.Type, metrics.OutcomeInvalid)
		return nil, domain.NewValidationError("you cannot book your own estate")
	}

	booking := &domain.Booking{
		ID:       uuid.New(),
		EstateID: estate.ID,
		BuyerID:  buyer.ID,
		SellerID: estate.OwnerID,
		Type:     req.Type,
		Amount:   req.Amount,
	}
	if window != nil {
		booking.StartDate = &window.Start
		booking.EndDate = &window.End
	}

	created, err := s.bookings.InsertWithConflictCheck(ctx, booking, Overlaps)
	switch {
	case errors.Is(err, domain.ErrOverlap):
		s.opts.metrics.RecordBooking(req.Type, metrics.OutcomeConflict)
		logger.InfoContext(ctx, "Rejected overlapping booking", "estate_id", estate.ID)
		return nil, err
	case err != nil:
		s.opts.metrics.RecordBooking(req.Type, metrics.OutcomeFailed)
		return nil, internal("insert booking", err)
	}

	s.opts.metrics.RecordBooking(created.Type, metrics.OutcomeSuccess)
	logger.InfoContext(ctx, "Booking created", "booking_id", created.ID, "estate_id", created.EstateID, "type", created.Type)
	publish(ctx, s.eventBus, events.BookingCreated, events.BookingCreatedEvent{
		BookingID: created.ID.String(),
		EstateID:  created.EstateID.String(),
		BuyerID:   created.BuyerID.String(),
		SellerID:  created.SellerID.String(),
		Type:      created.Type,
		Amount:    created.Amount,
		StartDate: created.StartDate,
		EndDate:   created.EndDate,
		CreatedAt: created.TransactionDate,
	})
	return created, nil
}

func (s *bookingService) ListMine(ctx context.Context, user *domain.User) ([]domain.Booking, error) {
	bookings, err := s.bookings.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, internal("list bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) RentCalendar(ctx context.Context, estateID uuid.UUID) ([]domain.DateRange, error) {
	estate, err := s.estates.FindByID(ctx, estateID)
	if err != nil {
		return nil, internal("find estate", err)
	}
	if estate == nil {
		return nil, domain.ErrEstateNotFound
	}

	bookings, err := s.bookings.FindRentBookingsForEstate(ctx, estateID)
	if err != nil {
		return nil, internal("find rent bookings", err)
	}
	days := make([]domain.DateRange, 0, len(bookings))
	for i := range bookings {
		if r, ok := bookings[i].Interval(); ok {
			days = append(days, r)
		}
	}
	return days, nil
}
