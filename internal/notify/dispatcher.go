package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"autoservice/internal/domain"
	"autoservice/internal/events"
	"autoservice/internal/metrics"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

// CustomerResolver отдает auth UID клиента для адресации push-уведомлений
type CustomerResolver interface {
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
}

// Dispatcher доставляет уведомления по событиям заявок. Доставка только
// best-effort: сбой логируется и считается в метриках, но никогда не
// возвращается в поток бронирования и не ретраится.
type Dispatcher struct {
	notifiers []domain.Notifier
	customers CustomerResolver
	logger    *zerolog.Logger
	timeout   time.Duration
}

func NewDispatcher(customers CustomerResolver, logger *zerolog.Logger, notifiers ...domain.Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		customers: customers,
		logger:    logger,
		timeout:   10 * time.Second,
	}
}

// Subscribe подписывает диспетчер на события заявок
func (d *Dispatcher) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, d.onBookingCreated)
	bus.Subscribe(events.EventBookingConfirmed, d.onBookingConfirmed)
}

func (d *Dispatcher) onBookingCreated(event *events.Event) error {
	payload, err := decodePayload(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event", event.Type).Msg("decode notification payload")
		return nil
	}

	message := fmt.Sprintf("Новая заявка %s: %s, %s",
		payload.Reference, payload.CustomerName, payload.Date.Format(models.DateLayout))
	d.notifyStaff(message)
	return nil
}

func (d *Dispatcher) onBookingConfirmed(event *events.Event) error {
	payload, err := decodePayload(event)
	if err != nil {
		d.logger.Error().Err(err).Str("event", event.Type).Msg("decode notification payload")
		return nil
	}

	message := fmt.Sprintf("Ваша запись на %s подтверждена", payload.Date.Format(models.DateLayout))
	d.notifyCustomer(payload, models.TemplateApproveBooking, message)
	return nil
}

func (d *Dispatcher) notifyStaff(message string) {
	for _, n := range d.notifiers {
		notifier := n
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := notifier.NotifyStaff(ctx, message); err != nil {
				metrics.IncNotifyFailure(notifier.Name())
				d.logger.Warn().Err(err).Str("channel", notifier.Name()).Msg("staff notification failed")
			}
		}()
	}
}

func (d *Dispatcher) notifyCustomer(payload events.BookingEventPayload, templateID, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		uid := payload.CustomerUID
		if uid == "" {
			// Админские переходы не несут UID в событии, достаем из профиля
			customer, err := d.customers.GetCustomerByID(ctx, payload.CustomerID)
			if err != nil {
				d.logger.Warn().Err(err).Int64("customer_id", payload.CustomerID).Msg("resolve notification recipient failed")
				return
			}
			uid = customer.AuthUID
		}

		for _, notifier := range d.notifiers {
			if err := notifier.NotifyCustomer(ctx, uid, templateID, message); err != nil {
				metrics.IncNotifyFailure(notifier.Name())
				d.logger.Warn().Err(err).Str("channel", notifier.Name()).Msg("customer notification failed")
			}
		}
	}()
}

func decodePayload(event *events.Event) (events.BookingEventPayload, error) {
	var payload events.BookingEventPayload
	err := json.Unmarshal(event.Payload, &payload)
	return payload, err
}
