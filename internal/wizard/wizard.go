// Package wizard implements the multi-step booking form: personal details,
// vehicle details, date selection, review, confirmation. Steps are linear, no
// step may be skipped, and the accumulated draft survives Back/Next round
// trips. The commit from Review is the only way to reach Confirmation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autoservice/internal/domain"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrNoSession мастер не запущен для этого клиента
	ErrNoSession = errors.New("no wizard session")

	// ErrWrongStep операция не соответствует текущему шагу
	ErrWrongStep = errors.New("operation does not match current wizard step")

	// ErrSubmitting коммит уже выполняется, повторная отправка заблокирована
	ErrSubmitting = errors.New("commit already in progress")

	// ErrDateNotSelectable день закрыт или заполнен, выбор отклонен до записи
	ErrDateNotSelectable = errors.New("date is not selectable")
)

// ValidationError перечисляет незаполненные или некорректные поля шага
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// Committer фиксирует собранный черновик. Защита от гонки двух сессий живет
// в транзакции хранилища, не здесь.
type Committer interface {
	CreateBooking(ctx context.Context, customer *models.Customer, draft models.BookingDraft) (*models.Booking, error)
}

// AvailabilityReader отвечает, можно ли выбрать день
type AvailabilityReader interface {
	GetDayAvailability(ctx context.Context, date time.Time) (models.DayAvailability, error)
}

type Machine struct {
	states       domain.StateRepository
	committer    Committer
	availability AvailabilityReader
	logger       *zerolog.Logger
}

func NewMachine(states domain.StateRepository, committer Committer, availability AvailabilityReader, logger *zerolog.Logger) *Machine {
	return &Machine{
		states:       states,
		committer:    committer,
		availability: availability,
		logger:       logger,
	}
}

var stepOrder = []string{
	models.StepPersonalDetails,
	models.StepVehicleDetails,
	models.StepDateSelection,
	models.StepReview,
	models.StepConfirmation,
}

func prevStep(step string) string {
	for i, s := range stepOrder {
		if s == step && i > 0 {
			return stepOrder[i-1]
		}
	}
	return step
}

// Start открывает сессию мастера или возвращает уже идущую
func (m *Machine) Start(ctx context.Context, customerID int64) (*models.WizardState, error) {
	state, err := m.states.GetState(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}

	state = &models.WizardState{
		CustomerID: customerID,
		Step:       models.StepPersonalDetails,
		UpdatedAt:  time.Now(),
	}
	if err := m.states.SetState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// State возвращает текущее состояние сессии
func (m *Machine) State(ctx context.Context, customerID int64) (*models.WizardState, error) {
	state, err := m.states.GetState(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoSession
	}
	return state, nil
}

// SubmitPersonal валидирует и сохраняет первый шаг
func (m *Machine) SubmitPersonal(ctx context.Context, customerID int64, details models.PersonalDetails) (*models.WizardState, error) {
	state, err := m.require(ctx, customerID, models.StepPersonalDetails)
	if err != nil {
		return nil, err
	}

	if missing := details.Validate(); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	state.Draft.Personal = details
	return m.advance(ctx, state, models.StepVehicleDetails)
}

// SubmitVehicle валидирует и сохраняет данные автомобиля
func (m *Machine) SubmitVehicle(ctx context.Context, customerID int64, details models.VehicleDetails) (*models.WizardState, error) {
	state, err := m.require(ctx, customerID, models.StepVehicleDetails)
	if err != nil {
		return nil, err
	}

	if missing := details.Validate(); len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	state.Draft.Vehicle = details
	return m.advance(ctx, state, models.StepDateSelection)
}

// SelectDate сохраняет дату и услуги. Заполненный или закрытый день
// отклоняется здесь, до какого-либо обращения к Booking Writer.
func (m *Machine) SelectDate(ctx context.Context, customerID int64, dateStr string, services []string, issue string) (*models.WizardState, error) {
	state, err := m.require(ctx, customerID, models.StepDateSelection)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"date"}}
	}
	if len(services) == 0 {
		return nil, &ValidationError{Fields: []string{"services"}}
	}

	day, err := m.availability.GetDayAvailability(ctx, date)
	if err != nil {
		return nil, err
	}
	if day.Unavailable || day.Severity == models.SeverityFull {
		return nil, fmt.Errorf("%w: %s", ErrDateNotSelectable, dateStr)
	}

	state.Draft.Date = dateStr
	state.Draft.Services = services
	state.Draft.Issue = issue
	return m.advance(ctx, state, models.StepReview)
}

// Back возвращается на шаг назад, не трогая накопленный черновик.
// Из первого шага и после подтверждения возврата нет.
func (m *Machine) Back(ctx context.Context, customerID int64) (*models.WizardState, error) {
	state, err := m.State(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if state.Step == models.StepConfirmation {
		return nil, ErrWrongStep
	}
	if state.Submitting {
		return nil, ErrSubmitting
	}

	state.Step = prevStep(state.Step)
	state.LastError = ""
	state.UpdatedAt = time.Now()
	if err := m.states.SetState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Commit фиксирует заявку из шага Review. При любой ошибке коммита мастер
// остается на Review и ошибка отдается вызывающему.
func (m *Machine) Commit(ctx context.Context, customer *models.Customer) (*models.Booking, *models.WizardState, error) {
	state, err := m.require(ctx, customer.ID, models.StepReview)
	if err != nil {
		return nil, nil, err
	}
	if state.Submitting {
		return nil, nil, ErrSubmitting
	}

	// Защелка от повторной отправки, пока коммит в полете
	state.Submitting = true
	state.UpdatedAt = time.Now()
	if err := m.states.SetState(ctx, state); err != nil {
		return nil, nil, err
	}

	booking, commitErr := m.committer.CreateBooking(ctx, customer, state.Draft)

	state.Submitting = false
	state.UpdatedAt = time.Now()
	if commitErr != nil {
		state.LastError = commitErr.Error()
		if err := m.states.SetState(ctx, state); err != nil {
			m.logger.Error().Err(err).Int64("customer_id", customer.ID).Msg("failed to persist wizard state after commit error")
		}
		return nil, state, commitErr
	}

	state.Step = models.StepConfirmation
	state.LastError = ""
	if err := m.states.SetState(ctx, state); err != nil {
		// Заявка уже зафиксирована, терять ее нельзя
		m.logger.Error().Err(err).Int64("customer_id", customer.ID).Msg("failed to persist wizard state after commit")
	}
	return booking, state, nil
}

// Restart доступен только из Confirmation: сбрасывает черновик и
// возвращает мастер на первый шаг.
func (m *Machine) Restart(ctx context.Context, customerID int64) (*models.WizardState, error) {
	state, err := m.require(ctx, customerID, models.StepConfirmation)
	if err != nil {
		return nil, err
	}

	state.Step = models.StepPersonalDetails
	state.Draft = models.BookingDraft{}
	state.LastError = ""
	state.Submitting = false
	state.UpdatedAt = time.Now()
	if err := m.states.SetState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Abandon удаляет сессию целиком
func (m *Machine) Abandon(ctx context.Context, customerID int64) error {
	return m.states.ClearState(ctx, customerID)
}

func (m *Machine) require(ctx context.Context, customerID int64, step string) (*models.WizardState, error) {
	state, err := m.State(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if state.Step != step {
		return nil, fmt.Errorf("%w: at %s, expected %s", ErrWrongStep, state.Step, step)
	}
	return state, nil
}

func (m *Machine) advance(ctx context.Context, state *models.WizardState, next string) (*models.WizardState, error) {
	state.Step = next
	state.LastError = ""
	state.UpdatedAt = time.Now()
	if err := m.states.SetState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}
