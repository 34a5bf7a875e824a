package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"autoservice/internal/events"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedNotification struct {
	kind       string
	recipient  string
	templateID string
	message    string
}

// chanNotifier собирает доставки в канал: диспетчер шлет из горутин
type chanNotifier struct {
	name     string
	failWith error
	calls    chan capturedNotification
}

func newChanNotifier(name string) *chanNotifier {
	return &chanNotifier{name: name, calls: make(chan capturedNotification, 10)}
}

func (n *chanNotifier) Name() string { return n.name }

func (n *chanNotifier) NotifyStaff(ctx context.Context, message string) error {
	n.calls <- capturedNotification{kind: "staff", message: message}
	return n.failWith
}

func (n *chanNotifier) NotifyCustomer(ctx context.Context, recipientUID, templateID, message string) error {
	n.calls <- capturedNotification{kind: "customer", recipient: recipientUID, templateID: templateID, message: message}
	return n.failWith
}

func (n *chanNotifier) wait(t *testing.T) capturedNotification {
	t.Helper()
	select {
	case call := <-n.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
		return capturedNotification{}
	}
}

type stubResolver struct {
	customer *models.Customer
	err      error
}

func (r *stubResolver) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	return r.customer, r.err
}

func publishBookingEvent(t *testing.T, bus *events.EventBus, eventType string, payload events.BookingEventPayload) {
	t.Helper()
	require.NoError(t, bus.PublishJSON(eventType, payload))
}

func TestDispatcher_StaffNotifiedOnCreate(t *testing.T) {
	notifier := newChanNotifier("push")
	logger := zerolog.Nop()
	dispatcher := NewDispatcher(&stubResolver{}, &logger, notifier)

	bus := events.NewEventBus()
	dispatcher.Subscribe(bus)

	date := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	publishBookingEvent(t, bus, events.EventBookingCreated, events.BookingEventPayload{
		BookingID:    1,
		Reference:    "ref-1",
		CustomerName: "Иван Петров",
		Date:         date,
	})

	call := notifier.wait(t)
	assert.Equal(t, "staff", call.kind)
	assert.Contains(t, call.message, "ref-1")
	assert.Contains(t, call.message, "Иван Петров")
	assert.Contains(t, call.message, "2027-03-01")
}

func TestDispatcher_CustomerNotifiedOnConfirm(t *testing.T) {
	notifier := newChanNotifier("push")
	logger := zerolog.Nop()
	dispatcher := NewDispatcher(&stubResolver{}, &logger, notifier)

	bus := events.NewEventBus()
	dispatcher.Subscribe(bus)

	publishBookingEvent(t, bus, events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID:   2,
		CustomerID:  7,
		CustomerUID: "uid-7",
		Date:        time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	call := notifier.wait(t)
	assert.Equal(t, "customer", call.kind)
	assert.Equal(t, "uid-7", call.recipient)
	assert.Equal(t, models.TemplateApproveBooking, call.templateID)
}

func TestDispatcher_ResolvesRecipientFromProfile(t *testing.T) {
	// Подтверждение из бэк-офиса не несет UID клиента в событии
	notifier := newChanNotifier("push")
	resolver := &stubResolver{customer: &models.Customer{ID: 7, AuthUID: "uid-resolved"}}
	logger := zerolog.Nop()
	dispatcher := NewDispatcher(resolver, &logger, notifier)

	bus := events.NewEventBus()
	dispatcher.Subscribe(bus)

	publishBookingEvent(t, bus, events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID:  3,
		CustomerID: 7,
		Date:       time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	call := notifier.wait(t)
	assert.Equal(t, "uid-resolved", call.recipient)
}

func TestDispatcher_ResolverFailureSkipsDelivery(t *testing.T) {
	notifier := newChanNotifier("push")
	resolver := &stubResolver{err: errors.New("profile lookup failed")}
	logger := zerolog.Nop()
	dispatcher := NewDispatcher(resolver, &logger, notifier)

	bus := events.NewEventBus()
	dispatcher.Subscribe(bus)

	publishBookingEvent(t, bus, events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID:  4,
		CustomerID: 8,
		Date:       time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	select {
	case <-notifier.calls:
		t.Fatal("notification must not be delivered without a recipient")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDispatcher_AllChannelsReceiveStaffMessage(t *testing.T) {
	push := newChanNotifier("push")
	telegram := newChanNotifier("telegram")
	logger := zerolog.Nop()
	dispatcher := NewDispatcher(&stubResolver{}, &logger, push, telegram)

	bus := events.NewEventBus()
	dispatcher.Subscribe(bus)

	publishBookingEvent(t, bus, events.EventBookingCreated, events.BookingEventPayload{
		BookingID: 5,
		Reference: "ref-5",
		Date:      time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	push.wait(t)
	telegram.wait(t)
}
