package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/repository/memory"
	"github.com/yuki-disu/PPD-back/pkg/events"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

type queueRecorder struct {
	events.NoopBus
	handlers map[string]func(*events.Message)
}

func (q *queueRecorder) QueueSubscribe(subject, queue string, handler func(*events.Message)) error {
	if queue != queueGroup {
		return errors.New("unexpected queue " + queue)
	}
	q.handlers[subject] = handler
	return nil
}

func message(t *testing.T, subject string, payload any) *events.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &events.Message{Subject: subject, Data: data, Timestamp: time.Now(), ID: "msg-1"}
}

func seed(t *testing.T) (*memory.Store, *domain.User, *domain.Estate) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	seller, err := store.Users().Create(ctx, &domain.User{
		Handle: "seller", Email: "seller@example.com", FirstName: "Sam", Role: domain.RoleCompany, Active: true,
	})
	require.NoError(t, err)
	estate, err := store.Estates().Create(ctx, &domain.Estate{
		OwnerID: seller.ID, Location: "4 Hill Street", Type: domain.EstateHouse, ForRent: true,
	})
	require.NoError(t, err)
	return store, seller, estate
}

func TestBookingCreatedEmailsSeller(t *testing.T) {
	store, seller, estate := seed(t)
	mail := &recordingMailer{}
	n := New(store.Users(), store.Estates(), mail)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	err := n.BookingCreated(context.Background(), message(t, events.BookingCreated, events.BookingCreatedEvent{
		BookingID: "b-1",
		EstateID:  estate.ID.String(),
		SellerID:  seller.ID.String(),
		Type:      domain.BookingRent,
		StartDate: &start,
		EndDate:   &end,
	}))
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	require.Equal(t, "seller@example.com", mail.sent[0].To)
	require.Contains(t, mail.sent[0].Text, "4 Hill Street has a new rent booking from 2025-06-01 to 2025-06-05.")
}

func TestBookingCreatedSkipsMissingSeller(t *testing.T) {
	store, _, estate := seed(t)
	mail := &recordingMailer{}
	n := New(store.Users(), store.Estates(), mail)

	err := n.BookingCreated(context.Background(), message(t, events.BookingCreated, events.BookingCreatedEvent{
		EstateID: estate.ID.String(),
		SellerID: "8d4c6b8e-1c0e-4d65-9c55-0b0d0e3f0a11",
		Type:     domain.BookingBuy,
	}))
	require.NoError(t, err)
	require.Empty(t, mail.sent)
}

func TestPasswordChangedEmailsOwner(t *testing.T) {
	store, seller, _ := seed(t)
	mail := &recordingMailer{}
	n := New(store.Users(), store.Estates(), mail)

	err := n.PasswordChanged(context.Background(), message(t, events.UserPasswordChanged, events.PasswordChangedEvent{
		UserID: seller.ID.String(), Reason: "reset", ChangedAt: time.Now(),
	}))
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	require.Equal(t, "Your password was changed", mail.sent[0].Subject)
}

func TestMalformedPayloads(t *testing.T) {
	store, _, _ := seed(t)
	n := New(store.Users(), store.Estates(), &recordingMailer{})
	ctx := context.Background()

	require.Error(t, n.BookingCreated(ctx, &events.Message{Subject: events.BookingCreated, Data: []byte("{")}))
	require.Error(t, n.PasswordChanged(ctx, message(t, events.UserPasswordChanged, events.PasswordChangedEvent{UserID: "nope"})))
}

func TestStartSubscribesQueueGroup(t *testing.T) {
	store, seller, _ := seed(t)
	mail := &recordingMailer{err: errors.New("provider down")}
	n := New(store.Users(), store.Estates(), mail)

	rec := &queueRecorder{handlers: map[string]func(*events.Message){}}
	require.NoError(t, n.Start(rec))
	require.Contains(t, rec.handlers, events.BookingCreated)
	require.Contains(t, rec.handlers, events.UserPasswordChanged)

	// delivery errors are logged, not propagated
	rec.handlers[events.UserPasswordChanged](message(t, events.UserPasswordChanged, events.PasswordChangedEvent{
		UserID: seller.ID.String(), ChangedAt: time.Now(),
	}))
	require.Len(t, mail.sent, 1)
}
