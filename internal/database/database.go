package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autoservice/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger

	dailyCapacity int64
	closedWeekday time.Weekday
}

// Option настраивает политику хранилища при создании
type Option func(*DB)

// WithDailyCapacity overrides the per-day saturation threshold.
func WithDailyCapacity(capacity int64) Option {
	return func(db *DB) {
		if capacity > 0 {
			db.dailyCapacity = capacity
		}
	}
}

// WithClosedWeekday overrides the fixed weekly closed day.
func WithClosedWeekday(day time.Weekday) Option {
	return func(db *DB) {
		db.closedWeekday = day
	}
}

func NewDB(path string, logger *zerolog.Logger, opts ...Option) (*DB, error) {
	// Создаем директорию для БД, если её нет
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Одно соединение: sqlite пишет последовательно, а так транзакции
	// создания заявок не ловят database is locked при повышении блокировки
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	db := &DB{
		DB:            sqlDB,
		logger:        logger,
		dailyCapacity: models.DefaultDailyCapacity,
		closedWeekday: time.Sunday,
	}
	for _, opt := range opts {
		opt(db)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("База данных инициализирована")
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Клиенты
		`CREATE TABLE IF NOT EXISTS customers (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            auth_uid TEXT UNIQUE NOT NULL,
            code TEXT UNIQUE NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT,
            phone TEXT,
            email TEXT,
            address TEXT,
            last_activity DATETIME NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Канонические заявки. Естественный ключ (customer_id, date):
		// один клиент — одна заявка на день.
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reference TEXT NOT NULL,
            customer_id INTEGER NOT NULL,
            customer_code TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            phone TEXT NOT NULL,
            email TEXT,
            address TEXT,
            vehicle_brand TEXT NOT NULL,
            vehicle_model TEXT NOT NULL,
            vehicle_year TEXT,
            transmission TEXT,
            fuel_type TEXT,
            odometer TEXT,
            plate_number TEXT,
            issue TEXT,
            date TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            completed_date TEXT NOT NULL DEFAULT 'Pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1,
            UNIQUE(customer_id, date)
        )`,

		// Денормализованная копия для чтения по клиенту. Пишется в той же
		// транзакции, что и каноническая запись.
		`CREATE TABLE IF NOT EXISTS customer_bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL,
            reference TEXT NOT NULL,
            customer_id INTEGER NOT NULL,
            customer_name TEXT NOT NULL,
            vehicle_brand TEXT NOT NULL,
            vehicle_model TEXT NOT NULL,
            vehicle_year TEXT,
            date TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            completed_date TEXT NOT NULL DEFAULT 'Pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(customer_id, date)
        )`,

		// Строки услуг заявки
		`CREATE TABLE IF NOT EXISTS booking_services (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL,
            name TEXT NOT NULL,
            mechanic TEXT NOT NULL DEFAULT 'TBA'
        )`,

		// Календарь: счетчик заявок и флаг недоступности на день.
		// Счетчик мутируется только в транзакции создания/отмены заявки.
		`CREATE TABLE IF NOT EXISTS calendar_days (
            date TEXT PRIMARY KEY,
            booked_count INTEGER NOT NULL DEFAULT 0,
            unavailable INTEGER NOT NULL DEFAULT 0,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Сотрудники
		`CREATE TABLE IF NOT EXISTS employees (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            code TEXT UNIQUE NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT,
            phone TEXT,
            role TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		// Журнал действий
		`CREATE TABLE IF NOT EXISTS logs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            actor TEXT NOT NULL,
            action TEXT NOT NULL,
            booking_id INTEGER,
            details TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer_id ON bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_customer_bookings_customer_id ON customer_bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_services_booking_id ON booking_services(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_auth_uid ON customers(auth_uid)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_booking_id ON logs(booking_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// DailyCapacity returns the configured per-day saturation threshold.
func (db *DB) DailyCapacity() int64 {
	return db.dailyCapacity
}

// ClosedWeekday returns the permanently closed day of the week.
func (db *DB) ClosedWeekday() time.Weekday {
	return db.closedWeekday
}

func (db *DB) Close() error {
	return db.DB.Close()
}
