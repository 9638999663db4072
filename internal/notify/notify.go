// Package notify turns domain events into emails.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

const queueGroup = "notify"

type Notifier struct {
	users   repository.UserRepository
	estates repository.EstateRepository
	mailer  mailer.Service
	timeout time.Duration
}

func New(users repository.UserRepository, estates repository.EstateRepository, mail mailer.Service) *Notifier {
	return &Notifier{
		users:   users,
		estates: estates,
		mailer:  mail,
		timeout: 15 * time.Second,
	}
}

// Start registers queue subscriptions so each event is handled by one replica.
func (n *Notifier) Start(sub events.Subscriber) error {
	if err := sub.QueueSubscribe(events.BookingCreated, queueGroup, n.handle(n.BookingCreated)); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.BookingCreated, err)
	}
	if err := sub.QueueSubscribe(events.UserPasswordChanged, queueGroup, n.handle(n.PasswordChanged)); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.UserPasswordChanged, err)
	}
	logger.Info("Notifier subscribed", "subjects", []string{events.BookingCreated, events.UserPasswordChanged})
	return nil
}

func (n *Notifier) handle(fn func(ctx context.Context, msg *events.Message) error) func(*events.Message) {
	return func(msg *events.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := fn(ctx, msg); err != nil {
			logger.Error("Notification failed", "subject", msg.Subject, "message_id", msg.ID, "error", err)
		}
	}
}

// BookingCreated tells the seller their estate was booked or bought.
func (n *Notifier) BookingCreated(ctx context.Context, msg *events.Message) error {
	var ev events.BookingCreatedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}

	seller, err := n.findUser(ctx, ev.SellerID)
	if err != nil || seller == nil {
		return err
	}
	estateID, err := uuid.Parse(ev.EstateID)
	if err != nil {
		return fmt.Errorf("estate id: %w", err)
	}
	estate, err := n.estates.FindByID(ctx, estateID)
	if err != nil {
		return err
	}
	location := "your estate"
	if estate != nil {
		location = estate.Location
	}

	window := ""
	if ev.StartDate != nil && ev.EndDate != nil {
		window = " from " + ev.StartDate.Format(domain.DateLayout) + " to " + ev.EndDate.Format(domain.DateLayout)
	}
	return n.mailer.Send(ctx, mailer.BookingReceivedEmail(seller.Email, seller.FirstName, location, ev.Type, window))
}

// PasswordChanged confirms a password change to the account owner.
func (n *Notifier) PasswordChanged(ctx context.Context, msg *events.Message) error {
	var ev events.PasswordChangedEvent
	if err := msg.Decode(&ev); err != nil {
		return err
	}
	user, err := n.findUser(ctx, ev.UserID)
	if err != nil || user == nil {
		return err
	}
	return n.mailer.Send(ctx, mailer.PasswordChangedEmail(user.Email, user.FirstName, ev.ChangedAt))
}

// findUser returns nil without error when the user has gone; there is nobody to notify.
func (n *Notifier) findUser(ctx context.Context, id string) (*domain.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	user, err := n.users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Active {
		return nil, nil
	}
	return user, nil
}
