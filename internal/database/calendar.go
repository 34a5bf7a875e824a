package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autoservice/internal/models"
)

// GetMonthAvailability возвращает агрегат по каждому дню месяца.
// Дни без записи материализуются как открытые с нулевым счетчиком.
func (db *DB) GetMonthAvailability(ctx context.Context, year int, month time.Month) (map[string]models.DayAvailability, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	rows, err := db.QueryContext(ctx,
		`SELECT date, booked_count, unavailable FROM calendar_days WHERE date >= ? AND date < ?`,
		first.Format(models.DateLayout), next.Format(models.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read month availability: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	blackouts := make(map[string]bool)
	for rows.Next() {
		var dateStr string
		var booked int64
		var unavailable bool
		if err := rows.Scan(&dateStr, &booked, &unavailable); err != nil {
			return nil, fmt.Errorf("failed to scan calendar day: %w", err)
		}
		counts[dateStr] = booked
		blackouts[dateStr] = unavailable
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make(map[string]models.DayAvailability, next.Sub(first)/(24*time.Hour))
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		key := day.Format(models.DateLayout)
		booked := counts[key]
		unavailable := blackouts[key] || day.Weekday() == db.closedWeekday
		result[key] = models.DayAvailability{
			Date:        day,
			Booked:      booked,
			Unavailable: unavailable,
			Severity:    models.Severity(booked, unavailable, db.dailyCapacity),
		}
	}
	return result, nil
}

// GetDayAvailability возвращает агрегат одного дня
func (db *DB) GetDayAvailability(ctx context.Context, date time.Time) (models.DayAvailability, error) {
	var booked int64
	var unavailable bool
	err := db.QueryRowContext(ctx,
		`SELECT booked_count, unavailable FROM calendar_days WHERE date = ?`,
		date.Format(models.DateLayout),
	).Scan(&booked, &unavailable)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.DayAvailability{}, fmt.Errorf("failed to read calendar day: %w", err)
	}

	unavailable = unavailable || date.Weekday() == db.closedWeekday
	return models.DayAvailability{
		Date:        date,
		Booked:      booked,
		Unavailable: unavailable,
		Severity:    models.Severity(booked, unavailable, db.dailyCapacity),
	}, nil
}

// MarkUnavailable закрывает день для записи. Идемпотентно. Постоянный
// выходной переопределить нельзя.
func (db *DB) MarkUnavailable(ctx context.Context, date time.Time) error {
	if date.Weekday() == db.closedWeekday {
		return ErrClosedWeekday
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO calendar_days (date, booked_count, unavailable, updated_at)
		 VALUES (?, 0, 1, ?)
		 ON CONFLICT(date) DO UPDATE SET unavailable = 1, updated_at = excluded.updated_at`,
		date.Format(models.DateLayout), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark date unavailable: %w", err)
	}
	return nil
}

// MarkAvailable снимает ручную блокировку дня. Идемпотентно.
func (db *DB) MarkAvailable(ctx context.Context, date time.Time) error {
	if date.Weekday() == db.closedWeekday {
		return ErrClosedWeekday
	}

	_, err := db.ExecContext(ctx,
		`UPDATE calendar_days SET unavailable = 0, updated_at = ? WHERE date = ?`,
		time.Now(), date.Format(models.DateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to mark date available: %w", err)
	}
	return nil
}
