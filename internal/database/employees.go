package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autoservice/internal/models"
)

const employeeColumns = `id, code, first_name, last_name, phone, role, status, created_at, updated_at`

// CreateEmployee добавляет сотрудника с последовательным кодом EMP-NNNN
func (db *DB) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	if !models.ValidEmployeeRole(employee.Role) {
		return fmt.Errorf("invalid employee role: %s", employee.Role)
	}
	if employee.Status == "" {
		employee.Status = models.EmployeeActive
	}
	if !models.ValidEmployeeStatus(employee.Status) {
		return fmt.Errorf("invalid employee status: %s", employee.Status)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM employees`).Scan(&seq); err != nil {
		return fmt.Errorf("failed to compute employee code: %w", err)
	}
	employee.Code = fmt.Sprintf("EMP-%04d", seq)

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO employees (code, first_name, last_name, phone, role, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		employee.Code, employee.FirstName, employee.LastName, employee.Phone,
		employee.Role, employee.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit employee: %w", err)
	}

	employee.ID = id
	employee.CreatedAt = now
	employee.UpdatedAt = now
	return nil
}

func (db *DB) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`
	return scanEmployee(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetAllEmployees(ctx context.Context) ([]*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY code ASC`
	return db.queryEmployees(ctx, query)
}

// GetEmployeesByStatus возвращает сотрудников по статусу
func (db *DB) GetEmployeesByStatus(ctx context.Context, status string) ([]*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE status = ? ORDER BY code ASC`
	return db.queryEmployees(ctx, query, status)
}

// GetActiveMechanics возвращает действующих механиков для назначения на услуги
func (db *DB) GetActiveMechanics(ctx context.Context) ([]*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees
		WHERE status = ? AND role != ? ORDER BY code ASC`
	return db.queryEmployees(ctx, query, models.EmployeeActive, models.RoleAdministrator)
}

func (db *DB) UpdateEmployeeStatus(ctx context.Context, id int64, status string) error {
	if !models.ValidEmployeeStatus(status) {
		return fmt.Errorf("invalid employee status: %s", status)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE employees SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdateEmployeeRole(ctx context.Context, id int64, role string) error {
	if !models.ValidEmployeeRole(role) {
		return fmt.Errorf("invalid employee role: %s", role)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE employees SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee role: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) queryEmployees(ctx context.Context, query string, args ...any) ([]*models.Employee, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	defer rows.Close()

	var employees []*models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	var e models.Employee
	err := row.Scan(
		&e.ID, &e.Code, &e.FirstName, &e.LastName, &e.Phone,
		&e.Role, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}
	return &e, nil
}
