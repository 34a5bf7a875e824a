package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autoservice/internal/config"
	"autoservice/internal/database"
	"autoservice/internal/domain"
	"autoservice/internal/events"
	"autoservice/internal/metrics"
	"autoservice/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrDateTooFar дата дальше разрешенного горизонта записи
	ErrDateTooFar = errors.New("booking date is too far ahead")

	// ErrDateTooSoon дата ближе минимального срока записи
	ErrDateTooSoon = errors.New("booking date is too soon")

	// ErrUnknownService услуга отсутствует в каталоге мастерской
	ErrUnknownService = errors.New("service is not in the catalog")
)

type BookingService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	catalog        map[string]config.ServiceOffering
	maxBookingDays int
	minAdvanceDays int
	logger         *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, catalog []config.ServiceOffering, booking config.BookingConfig, logger *zerolog.Logger) *BookingService {
	maxBookingDays := booking.MaxBookingDays
	if maxBookingDays <= 0 {
		maxBookingDays = 90
	}
	index := make(map[string]config.ServiceOffering, len(catalog))
	for _, svc := range catalog {
		index[svc.Name] = svc
	}
	return &BookingService{
		repo:           repo,
		eventBus:       eventBus,
		catalog:        index,
		maxBookingDays: maxBookingDays,
		minAdvanceDays: booking.MinBookingAdvance,
		logger:         logger,
	}
}

func (s *BookingService) ValidateBookingDate(date time.Time) error {
	// Дата не в прошлом
	if date.Before(time.Now().AddDate(0, 0, -1)) {
		return database.ErrPastDate
	}

	if s.minAdvanceDays > 0 {
		earliest := time.Now().AddDate(0, 0, s.minAdvanceDays)
		earliest = time.Date(earliest.Year(), earliest.Month(), earliest.Day(), 0, 0, 0, 0, date.Location())
		if date.Before(earliest) {
			return ErrDateTooSoon
		}
	}

	maxDate := time.Now().AddDate(0, 0, s.maxBookingDays)
	if date.After(maxDate) {
		return ErrDateTooFar
	}

	if date.Weekday() == s.repo.ClosedWeekday() {
		return database.ErrDateUnavailable
	}

	return nil
}

// ValidateServices проверяет запрошенные услуги по каталогу
func (s *BookingService) ValidateServices(names []string) error {
	if len(s.catalog) == 0 {
		return nil
	}
	for _, name := range names {
		svc, ok := s.catalog[strings.TrimSpace(name)]
		if !ok || !svc.IsActive {
			return fmt.Errorf("%w: %s", ErrUnknownService, name)
		}
	}
	return nil
}

// CreateBooking собирает заявку из черновика мастера и фиксирует ее
// атомарно. Дубликат и насыщение дня отсекаются транзакцией хранилища.
func (s *BookingService) CreateBooking(ctx context.Context, customer *models.Customer, draft models.BookingDraft) (*models.Booking, error) {
	date := draft.ParsedDate()
	if date.IsZero() {
		return nil, database.ErrDateUnavailable
	}
	if err := s.ValidateBookingDate(date); err != nil {
		return nil, err
	}
	if err := s.ValidateServices(draft.Services); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		Reference:    uuid.NewString(),
		CustomerID:   customer.ID,
		CustomerCode: customer.Code,
		CustomerName: strings.TrimSpace(draft.Personal.FirstName + " " + draft.Personal.LastName),
		Phone:        draft.Personal.Phone,
		Email:        draft.Personal.Email,
		Address:      draft.Personal.Address,
		Vehicle: models.Vehicle{
			Brand:        draft.Vehicle.Brand,
			Model:        draft.Vehicle.Model,
			Year:         draft.Vehicle.Year,
			Transmission: draft.Vehicle.Transmission,
			FuelType:     draft.Vehicle.FuelType,
			Odometer:     draft.Vehicle.Odometer,
			PlateNumber:  draft.Vehicle.PlateNumber,
		},
		Issue: draft.Issue,
		Date:  date,
	}
	for _, name := range draft.Services {
		booking.Services = append(booking.Services, models.ServiceLine{
			Name:     name,
			Mechanic: models.MechanicUnassigned,
		})
	}

	if err := s.repo.CreateBookingTx(ctx, booking); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateBooking):
			metrics.IncBookingRejected("duplicate")
		case errors.Is(err, database.ErrDateFullyBooked):
			metrics.IncBookingRejected("full")
		case errors.Is(err, database.ErrDateUnavailable):
			metrics.IncBookingRejected("unavailable")
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking, customer.AuthUID, "customer", customer.ID)
	return booking, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, version, adminID int64) error {
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, version, models.StatusConfirmed); err != nil {
		return err
	}
	s.publishAfterTransition(ctx, events.EventBookingConfirmed, bookingID, adminID)
	return nil
}

func (s *BookingService) StartRepair(ctx context.Context, bookingID, version, adminID int64) error {
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, version, models.StatusRepairing); err != nil {
		return err
	}
	s.publishAfterTransition(ctx, events.EventBookingRepairing, bookingID, adminID)
	return nil
}

func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, version, adminID int64) error {
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, version, models.StatusCompleted); err != nil {
		return err
	}
	s.publishAfterTransition(ctx, events.EventBookingCompleted, bookingID, adminID)
	return nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID, version, actorID int64) error {
	if err := s.repo.CancelBooking(ctx, bookingID, version); err != nil {
		return err
	}
	s.publishAfterTransition(ctx, events.EventBookingCancelled, bookingID, actorID)
	return nil
}

// AssignMechanic назначает действующего механика на строку услуги
func (s *BookingService) AssignMechanic(ctx context.Context, lineID, employeeID int64) error {
	employee, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if employee.Status != models.EmployeeActive {
		return fmt.Errorf("employee %s is not active", employee.Code)
	}
	if employee.Role == models.RoleAdministrator {
		return fmt.Errorf("employee %s is not a mechanic", employee.Code)
	}

	if err := s.repo.AssignMechanic(ctx, lineID, employee.FullName()); err != nil {
		return err
	}

	if s.eventBus != nil {
		_ = s.eventBus.PublishJSON(events.EventMechanicAssigned, map[string]any{
			"line_id":  lineID,
			"mechanic": employee.FullName(),
		})
	}
	return nil
}

func (s *BookingService) GetMonthAvailability(ctx context.Context, year int, month time.Month) (map[string]models.DayAvailability, error) {
	return s.repo.GetMonthAvailability(ctx, year, month)
}

func (s *BookingService) GetDayAvailability(ctx context.Context, date time.Time) (models.DayAvailability, error) {
	return s.repo.GetDayAvailability(ctx, date)
}

// MarkUnavailable закрывает день вручную (blackout)
func (s *BookingService) MarkUnavailable(ctx context.Context, date time.Time, adminID int64) error {
	if err := s.repo.MarkUnavailable(ctx, date); err != nil {
		return err
	}
	if s.eventBus != nil {
		_ = s.eventBus.PublishJSON(events.EventDateBlackout, map[string]any{
			"date":     date.Format(models.DateLayout),
			"admin_id": adminID,
		})
	}
	return nil
}

func (s *BookingService) MarkAvailable(ctx context.Context, date time.Time) error {
	return s.repo.MarkAvailable(ctx, date)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) GetBookingsByStatus(ctx context.Context, status string) ([]*models.Booking, error) {
	return s.repo.GetBookingsByStatus(ctx, status)
}

func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	return s.repo.GetCustomerBookings(ctx, customerID)
}

func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	return s.repo.GetDailyBookings(ctx, start, end)
}

func (s *BookingService) publishAfterTransition(ctx context.Context, eventType string, bookingID, actorID int64) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("reload booking after transition")
		return
	}
	s.publishEvent(eventType, booking, "", "admin", actorID)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, customerUID, changedBy string, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		Reference:    booking.Reference,
		CustomerID:   booking.CustomerID,
		CustomerName: booking.CustomerName,
		CustomerUID:  customerUID,
		Status:       booking.Status,
		Date:         booking.Date,
		ChangedBy:    changedBy,
		ChangedByID:  changedByID,
	}
	for _, line := range booking.Services {
		payload.Services = append(payload.Services, line.Name)
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
