package domain

import (
	"context"
	"time"

	"autoservice/internal/models"
)

type Repository interface {
	CreateBookingTx(ctx context.Context, booking *models.Booking) error
	CancelBooking(ctx context.Context, id, fromVersion int64) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByCustomerAndDate(ctx context.Context, customerID int64, date time.Time) (*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetBookingsByStatus(ctx context.Context, status string) ([]*models.Booking, error)
	GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error)
	GetBookingServices(ctx context.Context, bookingID int64) ([]models.ServiceLine, error)
	AssignMechanic(ctx context.Context, lineID int64, mechanic string) error
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)

	GetMonthAvailability(ctx context.Context, year int, month time.Month) (map[string]models.DayAvailability, error)
	GetDayAvailability(ctx context.Context, date time.Time) (models.DayAvailability, error)
	MarkUnavailable(ctx context.Context, date time.Time) error
	MarkAvailable(ctx context.Context, date time.Time) error

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByAuthUID(ctx context.Context, authUID string) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetAllCustomers(ctx context.Context) ([]*models.Customer, error)
	UpdateCustomerProfile(ctx context.Context, customer *models.Customer) error
	UpdateCustomerActivity(ctx context.Context, id int64) error

	CreateEmployee(ctx context.Context, employee *models.Employee) error
	GetEmployee(ctx context.Context, id int64) (*models.Employee, error)
	GetAllEmployees(ctx context.Context) ([]*models.Employee, error)
	GetEmployeesByStatus(ctx context.Context, status string) ([]*models.Employee, error)
	GetActiveMechanics(ctx context.Context) ([]*models.Employee, error)
	UpdateEmployeeStatus(ctx context.Context, id int64, status string) error
	UpdateEmployeeRole(ctx context.Context, id int64, role string) error

	DailyCapacity() int64
	ClosedWeekday() time.Weekday
}

// StateRepository хранит состояние мастера бронирования между запросами
type StateRepository interface {
	GetState(ctx context.Context, customerID int64) (*models.WizardState, error)
	SetState(ctx context.Context, state *models.WizardState) error
	ClearState(ctx context.Context, customerID int64) error
	CheckRateLimit(ctx context.Context, customerID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier один канал доставки уведомлений (push-провайдер, телеграм)
type Notifier interface {
	Name() string
	NotifyStaff(ctx context.Context, message string) error
	NotifyCustomer(ctx context.Context, recipientUID, templateID, message string) error
}
