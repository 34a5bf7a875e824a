package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"autoservice/internal/models"
)

const bookingColumns = `id, reference, customer_id, customer_code, customer_name, phone, email, address,
	vehicle_brand, vehicle_model, vehicle_year, transmission, fuel_type, odometer, plate_number,
	issue, date, status, completed_date, created_at, updated_at, version`

// CreateBookingTx атомарно создает заявку: проверка дубликата и лимита дня,
// каноническая запись, денормализованная копия, строки услуг и инкремент
// счетчика календаря выполняются в одной транзакции.
func (db *DB) CreateBookingTx(ctx context.Context, booking *models.Booking) error {
	dateStr := booking.Date.Format(models.DateLayout)

	if booking.Date.Weekday() == db.closedWeekday {
		return ErrDateUnavailable
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Дубликат: у клиента уже есть активная заявка на эту дату
	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE customer_id = ? AND date = ? AND status != ?`,
		booking.CustomerID, dateStr, models.StatusCancelled,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check duplicate in tx: %w", err)
	}
	if existing > 0 {
		return ErrDuplicateBooking
	}

	// 2. Календарь: недоступность и насыщение дня
	var bookedCount int64
	var unavailable bool
	err = tx.QueryRowContext(ctx,
		`SELECT booked_count, unavailable FROM calendar_days WHERE date = ?`, dateStr,
	).Scan(&bookedCount, &unavailable)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read calendar day in tx: %w", err)
	}
	if unavailable {
		return ErrDateUnavailable
	}
	if bookedCount >= db.dailyCapacity {
		return ErrDateFullyBooked
	}

	now := time.Now()

	// 3. Каноническая запись
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (
			reference, customer_id, customer_code, customer_name, phone, email, address,
			vehicle_brand, vehicle_model, vehicle_year, transmission, fuel_type, odometer, plate_number,
			issue, date, status, completed_date, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.Reference, booking.CustomerID, booking.CustomerCode, booking.CustomerName,
		booking.Phone, booking.Email, booking.Address,
		booking.Vehicle.Brand, booking.Vehicle.Model, booking.Vehicle.Year,
		booking.Vehicle.Transmission, booking.Vehicle.FuelType, booking.Vehicle.Odometer,
		booking.Vehicle.PlateNumber,
		booking.Issue, dateStr, models.StatusPending, models.CompletionPending, now, now, 1,
	)
	if err != nil {
		// UNIQUE(customer_id, date) страхует проверку выше
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	// 4. Денормализованная копия под чтение по клиенту
	_, err = tx.ExecContext(ctx,
		`INSERT INTO customer_bookings (
			booking_id, reference, customer_id, customer_name,
			vehicle_brand, vehicle_model, vehicle_year, date, status, completed_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, booking.Reference, booking.CustomerID, booking.CustomerName,
		booking.Vehicle.Brand, booking.Vehicle.Model, booking.Vehicle.Year,
		dateStr, models.StatusPending, models.CompletionPending, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer copy in tx: %w", err)
	}

	// 5. Строки услуг, механик пока не назначен
	for i := range booking.Services {
		line := &booking.Services[i]
		if line.Mechanic == "" {
			line.Mechanic = models.MechanicUnassigned
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO booking_services (booking_id, name, mechanic) VALUES (?, ?, ?)`,
			id, line.Name, line.Mechanic,
		)
		if err != nil {
			return fmt.Errorf("failed to insert service line in tx: %w", err)
		}
		lineID, _ := res.LastInsertId()
		line.ID = lineID
		line.BookingID = id
	}

	// 6. Счетчик дня: инкремент в той же транзакции, без пересканирования
	_, err = tx.ExecContext(ctx,
		`INSERT INTO calendar_days (date, booked_count, unavailable, updated_at)
		 VALUES (?, 1, 0, ?)
		 ON CONFLICT(date) DO UPDATE SET booked_count = booked_count + 1, updated_at = excluded.updated_at`,
		dateStr, now,
	)
	if err != nil {
		return fmt.Errorf("failed to bump calendar counter in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.Status = models.StatusPending
	booking.CompletedDate = models.CompletionPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// CancelBooking отменяет заявку и возвращает место в календаре
func (db *DB) CancelBooking(ctx context.Context, id, fromVersion int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var dateStr, status string
	err = tx.QueryRowContext(ctx, `SELECT date, status FROM bookings WHERE id = ?`, id).
		Scan(&dateStr, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load booking in tx: %w", err)
	}
	if status != models.StatusPending && status != models.StatusConfirmed {
		return ErrInvalidTransition
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		models.StatusCancelled, now, id, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE customer_bookings SET status = ?, updated_at = ? WHERE booking_id = ?`,
		models.StatusCancelled, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel customer copy: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE calendar_days SET booked_count = MAX(booked_count - 1, 0), updated_at = ? WHERE date = ?`,
		now, dateStr,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement calendar counter: %w", err)
	}

	return tx.Commit()
}

// UpdateBookingStatusWithVersion переводит заявку в новый статус с
// оптимистической блокировкой; обе копии обновляются в одной транзакции.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	if !models.ValidStatus(status) {
		return ErrInvalidTransition
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	completed := models.CompletionPending
	if status == models.StatusCompleted {
		completed = now.Format(models.DateLayout)
	}

	var result sql.Result
	if status == models.StatusCompleted {
		result, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, completed_date = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			status, completed, now, id, fromVersion,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			status, now, id, fromVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	if status == models.StatusCompleted {
		_, err = tx.ExecContext(ctx,
			`UPDATE customer_bookings SET status = ?, completed_date = ?, updated_at = ? WHERE booking_id = ?`,
			status, completed, now, id,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE customer_bookings SET status = ?, updated_at = ? WHERE booking_id = ?`,
			status, now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update customer copy status: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	services, err := db.GetBookingServices(ctx, id)
	if err != nil {
		return nil, err
	}
	booking.Services = services
	return booking, nil
}

// GetBookingByCustomerAndDate ищет заявку по естественному ключу
func (db *DB) GetBookingByCustomerAndDate(ctx context.Context, customerID int64, date time.Time) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = ? AND date = ? AND status != ?`
	return scanBooking(db.QueryRowContext(ctx, query, customerID, date.Format(models.DateLayout), models.StatusCancelled))
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE date >= ? AND date <= ? ORDER BY date ASC, created_at ASC`
	rows, err := db.QueryContext(ctx, query,
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (db *DB) GetBookingsByStatus(ctx context.Context, status string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ? ORDER BY date ASC`
	rows, err := db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by status: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// GetCustomerBookings читает денормализованную копию клиента
func (db *DB) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	query := `SELECT booking_id, reference, customer_id, customer_name,
		vehicle_brand, vehicle_model, vehicle_year, date, status, completed_date, created_at, updated_at
		FROM customer_bookings WHERE customer_id = ? ORDER BY date DESC`
	rows, err := db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		var dateStr string
		err := rows.Scan(
			&b.ID, &b.Reference, &b.CustomerID, &b.CustomerName,
			&b.Vehicle.Brand, &b.Vehicle.Model, &b.Vehicle.Year,
			&dateStr, &b.Status, &b.CompletedDate, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer booking: %w", err)
		}
		b.Date, err = time.Parse(models.DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBookingServices(ctx context.Context, bookingID int64) ([]models.ServiceLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, booking_id, name, mechanic FROM booking_services WHERE booking_id = ? ORDER BY id`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking services: %w", err)
	}
	defer rows.Close()

	var lines []models.ServiceLine
	for rows.Next() {
		var line models.ServiceLine
		if err := rows.Scan(&line.ID, &line.BookingID, &line.Name, &line.Mechanic); err != nil {
			return nil, fmt.Errorf("failed to scan service line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// AssignMechanic назначает механика на строку услуги
func (db *DB) AssignMechanic(ctx context.Context, lineID int64, mechanic string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE booking_services SET mechanic = ? WHERE id = ?`, mechanic, lineID)
	if err != nil {
		return fmt.Errorf("failed to assign mechanic: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDailyBookings группирует заявки периода по дням
func (db *DB) GetDailyBookings(ctx context.Context, startDate, endDate time.Time) (map[string][]*models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		daily[b.DateKey()] = append(daily[b.DateKey()], b)
	}
	return daily, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var dateStr string
	err := row.Scan(
		&b.ID, &b.Reference, &b.CustomerID, &b.CustomerCode, &b.CustomerName,
		&b.Phone, &b.Email, &b.Address,
		&b.Vehicle.Brand, &b.Vehicle.Model, &b.Vehicle.Year,
		&b.Vehicle.Transmission, &b.Vehicle.FuelType, &b.Vehicle.Odometer, &b.Vehicle.PlateNumber,
		&b.Issue, &dateStr, &b.Status, &b.CompletedDate, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	return b, nil
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
