package service

import (
	"context"

	"autoservice/internal/domain"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

type EmployeeService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewEmployeeService(repo domain.Repository, logger *zerolog.Logger) *EmployeeService {
	return &EmployeeService{
		repo:   repo,
		logger: logger,
	}
}

func (s *EmployeeService) Hire(ctx context.Context, employee *models.Employee) error {
	if err := s.repo.CreateEmployee(ctx, employee); err != nil {
		return err
	}
	s.logger.Info().Str("code", employee.Code).Str("role", employee.Role).Msg("employee hired")
	return nil
}

func (s *EmployeeService) GetByID(ctx context.Context, id int64) (*models.Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

func (s *EmployeeService) GetAll(ctx context.Context) ([]*models.Employee, error) {
	return s.repo.GetAllEmployees(ctx)
}

func (s *EmployeeService) GetByStatus(ctx context.Context, status string) ([]*models.Employee, error) {
	return s.repo.GetEmployeesByStatus(ctx, status)
}

// GetActiveMechanics возвращает механиков, доступных для назначения
func (s *EmployeeService) GetActiveMechanics(ctx context.Context) ([]*models.Employee, error) {
	return s.repo.GetActiveMechanics(ctx)
}

func (s *EmployeeService) ChangeStatus(ctx context.Context, id int64, status string) error {
	return s.repo.UpdateEmployeeStatus(ctx, id, status)
}

func (s *EmployeeService) ChangeRole(ctx context.Context, id int64, role string) error {
	return s.repo.UpdateEmployeeRole(ctx, id, role)
}
