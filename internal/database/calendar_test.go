package database

import (
	"context"
	"testing"
	"time"

	"autoservice/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMonthAvailability(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	target := time.Now().AddDate(0, 1, 0)
	year, month := target.Year(), target.Month()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	// Ленивая материализация: месяц без записей полностью открыт
	days, err := db.GetMonthAvailability(ctx, year, month)
	require.NoError(t, err)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	require.Len(t, days, daysInMonth)

	for key, day := range days {
		if day.Date.Weekday() == db.ClosedWeekday() {
			assert.True(t, day.Unavailable, "closed weekday %s must be unavailable", key)
			assert.Equal(t, models.SeverityFull, day.Severity)
		} else {
			assert.False(t, day.Unavailable)
			assert.Equal(t, models.SeverityOpen, day.Severity)
			assert.Zero(t, day.Booked)
		}
	}
}

func TestGetMonthAvailability_Bands(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	date := openDate(db, 10)

	// 1 заявка - low
	customer := createTestCustomer(t, db, "uid-1")
	require.NoError(t, db.CreateBookingTx(ctx, newTestBooking(customer, date)))

	days, err := db.GetMonthAvailability(ctx, date.Year(), date.Month())
	require.NoError(t, err)
	day := days[date.Format(models.DateLayout)]
	assert.Equal(t, models.SeverityLow, day.Severity)
	assert.Equal(t, int64(1), day.Booked)

	// 2 заявки - medium
	second := createTestCustomer(t, db, "uid-2")
	require.NoError(t, db.CreateBookingTx(ctx, newTestBooking(second, date)))

	days, err = db.GetMonthAvailability(ctx, date.Year(), date.Month())
	require.NoError(t, err)
	assert.Equal(t, models.SeverityMedium, days[date.Format(models.DateLayout)].Severity)
}

func TestMarkUnavailable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	date := openDate(db, 5)

	require.NoError(t, db.MarkUnavailable(ctx, date))
	// Идемпотентно
	require.NoError(t, db.MarkUnavailable(ctx, date))

	day, err := db.GetDayAvailability(ctx, date)
	require.NoError(t, err)
	assert.True(t, day.Unavailable)
	assert.Equal(t, models.SeverityFull, day.Severity)

	require.NoError(t, db.MarkAvailable(ctx, date))
	day, err = db.GetDayAvailability(ctx, date)
	require.NoError(t, err)
	assert.False(t, day.Unavailable)
}

func TestMarkUnavailable_ClosedWeekday(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sunday := time.Now()
	for sunday.Weekday() != time.Sunday {
		sunday = sunday.AddDate(0, 0, 1)
	}

	err := db.MarkUnavailable(context.Background(), sunday)
	assert.ErrorIs(t, err, ErrClosedWeekday)
	err = db.MarkAvailable(context.Background(), sunday)
	assert.ErrorIs(t, err, ErrClosedWeekday)
}

func TestMarkUnavailable_KeepsBookedCount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	date := openDate(db, 5)
	customer := createTestCustomer(t, db, "uid-1")
	require.NoError(t, db.CreateBookingTx(ctx, newTestBooking(customer, date)))

	require.NoError(t, db.MarkUnavailable(ctx, date))

	day, err := db.GetDayAvailability(ctx, date)
	require.NoError(t, err)
	assert.True(t, day.Unavailable)
	assert.Equal(t, int64(1), day.Booked)
}
