package database

import "errors"

var (
	// ErrDuplicateBooking клиент уже имеет заявку на эту дату
	ErrDuplicateBooking = errors.New("booking already exists for this customer and date")

	// ErrDateUnavailable день закрыт для записи (blackout или выходной)
	ErrDateUnavailable = errors.New("date is unavailable for booking")

	// ErrDateFullyBooked достигнут лимит заявок на день
	ErrDateFullyBooked = errors.New("date is fully booked")

	// ErrClosedWeekday постоянный выходной нельзя переопределить
	ErrClosedWeekday = errors.New("weekday is permanently closed")

	// ErrPastDate дата в прошлом
	ErrPastDate = errors.New("booking date is in the past")

	// ErrConcurrentModification запись изменена другим администратором
	ErrConcurrentModification = errors.New("booking was modified concurrently")

	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition недопустимый переход статуса
	ErrInvalidTransition = errors.New("invalid status transition")
)
