package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRepairing = "repairing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	RoleAdministrator     = "administrator"
	RoleLeadMechanic      = "lead_mechanic"
	RoleAssistantMechanic = "assistant_mechanic"
	RoleHelperMechanic    = "helper_mechanic"
)

const (
	EmployeeActive     = "active"
	EmployeeInactive   = "inactive"
	EmployeeTerminated = "terminated"
)

// MechanicUnassigned помечает строку услуги без назначенного механика
const MechanicUnassigned = "TBA"

const (
	StepPersonalDetails = "personal_details"
	StepVehicleDetails  = "vehicle_details"
	StepDateSelection   = "date_selection"
	StepReview          = "review"
	StepConfirmation    = "confirmation"
)

const (
	// DefaultDailyCapacity максимальное число заявок на один день
	DefaultDailyCapacity = 5

	// SeverityLowMax и SeverityMediumMax границы цветовых зон календаря
	SeverityLowMax    = 1
	SeverityMediumMax = 4

	// DefaultStateTTL время жизни состояния мастера в Redis (секунды)
	DefaultStateTTL = 24 * 60 * 60

	// RateLimitAttempts действий мастера на клиента в одном окне
	RateLimitAttempts = 20

	// RateLimitWindow окно ограничения частоты действий мастера (секунды)
	RateLimitWindow = 60

	// WorkerQueueSize размер очереди воркера журнала
	WorkerQueueSize = 1000
)

const (
	SeverityOpen   = "open"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityFull   = "full"
)

const (
	TemplateNewBooking     = "new_booking"
	TemplateApproveBooking = "approve_booking"
)

// DateLayout формат дат бронирования (день, без времени)
const DateLayout = "2006-01-02"

// CompletionPending sentinel for bookings that are not completed yet.
const CompletionPending = "Pending"

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusRepairing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidEmployeeRole(role string) bool {
	switch role {
	case RoleAdministrator, RoleLeadMechanic, RoleAssistantMechanic, RoleHelperMechanic:
		return true
	}
	return false
}

func ValidEmployeeStatus(status string) bool {
	switch status {
	case EmployeeActive, EmployeeInactive, EmployeeTerminated:
		return true
	}
	return false
}
