package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"autoservice/internal/database"
	"autoservice/internal/events"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

// AuditSink persists audit entries.
type AuditSink interface {
	InsertAuditEntry(ctx context.Context, entry *database.AuditEntry) error
}

// AuditWorker асинхронно пишет журнал действий по событиям заявок.
// Запись журнала не должна тормозить поток бронирования, поэтому события
// складываются в буфер и пишутся отдельной горутиной с ретраями.
type AuditWorker struct {
	db          AuditSink
	retryPolicy RetryPolicy
	queue       chan database.AuditEntry
	logger      *zerolog.Logger
}

// NewAuditWorker builds a worker with sane defaults.
func NewAuditWorker(db AuditSink, retry RetryPolicy, logger *zerolog.Logger) *AuditWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 30 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &AuditWorker{
		db:          db,
		retryPolicy: retry,
		queue:       make(chan database.AuditEntry, models.WorkerQueueSize),
		logger:      logger,
	}
}

// Subscribe подписывает воркер на все события заявок
func (w *AuditWorker) Subscribe(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingRepairing,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
		events.EventMechanicAssigned,
		events.EventDateBlackout,
	} {
		bus.Subscribe(eventType, w.onEvent)
	}
}

func (w *AuditWorker) onEvent(event *events.Event) error {
	entry := database.AuditEntry{
		Action:  event.Type,
		Details: string(event.Payload),
		Actor:   "system",
	}

	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err == nil {
		entry.BookingID = payload.BookingID
		if payload.ChangedBy != "" {
			entry.Actor = fmt.Sprintf("%s:%d", payload.ChangedBy, payload.ChangedByID)
		}
	}

	select {
	case w.queue <- entry:
	default:
		w.logger.Warn().Str("action", entry.Action).Msg("audit queue full, entry dropped")
	}
	return nil
}

// Enqueue кладет запись журнала напрямую, минуя шину
func (w *AuditWorker) Enqueue(entry database.AuditEntry) {
	select {
	case w.queue <- entry:
	default:
		w.logger.Warn().Str("action", entry.Action).Msg("audit queue full, entry dropped")
	}
}

// Start launches the main loop; stops when ctx is done and the queue drains.
func (w *AuditWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("audit worker started")
	defer w.logger.Info().Msg("audit worker stopped")

	for {
		select {
		case entry := <-w.queue:
			w.persist(ctx, entry)
		case <-ctx.Done():
			// Дописываем накопленное перед выходом
			for {
				select {
				case entry := <-w.queue:
					w.persist(context.Background(), entry)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWorker) persist(ctx context.Context, entry database.AuditEntry) {
	for attempt := 1; ; attempt++ {
		err := w.db.InsertAuditEntry(ctx, &entry)
		if err == nil {
			return
		}
		if attempt >= w.retryPolicy.MaxRetries {
			w.logger.Error().Err(err).Str("action", entry.Action).Int("attempts", attempt).
				Msg("audit entry dropped after retries")
			return
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(err).Str("action", entry.Action).Dur("retry_in", delay).Msg("audit write failed")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}
