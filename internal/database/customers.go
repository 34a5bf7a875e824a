package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autoservice/internal/models"
)

const customerColumns = `id, auth_uid, code, first_name, last_name, phone, email, address,
	last_activity, created_at, updated_at`

// CreateCustomer регистрирует клиента и выдает ему читаемый код CUST-NNNN
func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM customers`).Scan(&seq); err != nil {
		return fmt.Errorf("failed to compute customer code: %w", err)
	}
	customer.Code = fmt.Sprintf("CUST-%04d", seq)

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO customers (auth_uid, code, first_name, last_name, phone, email, address, last_activity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.AuthUID, customer.Code, customer.FirstName, customer.LastName,
		customer.Phone, customer.Email, customer.Address, now, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit customer: %w", err)
	}

	customer.ID = id
	customer.LastActivity = now
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return nil
}

func (db *DB) GetCustomerByAuthUID(ctx context.Context, authUID string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE auth_uid = ?`
	return scanCustomer(db.QueryRowContext(ctx, query, authUID))
}

func (db *DB) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`
	return scanCustomer(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetAllCustomers(ctx context.Context) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// UpdateCustomerProfile обновляет контактные данные клиента
func (db *DB) UpdateCustomerProfile(ctx context.Context, customer *models.Customer) error {
	result, err := db.ExecContext(ctx,
		`UPDATE customers SET first_name = ?, last_name = ?, phone = ?, email = ?, address = ?, updated_at = ?
		 WHERE id = ?`,
		customer.FirstName, customer.LastName, customer.Phone, customer.Email,
		customer.Address, time.Now(), customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdateCustomerActivity(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE customers SET last_activity = ?, updated_at = ? WHERE id = ?`,
		time.Now(), time.Now(), id,
	)
	return err
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.AuthUID, &c.Code, &c.FirstName, &c.LastName,
		&c.Phone, &c.Email, &c.Address,
		&c.LastActivity, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}
