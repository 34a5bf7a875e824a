package service

import (
	"context"
	"errors"

	"autoservice/internal/database"
	"autoservice/internal/domain"
	"autoservice/internal/models"

	"github.com/rs/zerolog"
)

type CustomerService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewCustomerService(repo domain.Repository, logger *zerolog.Logger) *CustomerService {
	return &CustomerService{
		repo:   repo,
		logger: logger,
	}
}

// RegisterCustomer создает профиль клиента; повторная регистрация по тому же
// auth UID возвращает существующий профиль.
func (s *CustomerService) RegisterCustomer(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	existing, err := s.repo.GetCustomerByAuthUID(ctx, customer.AuthUID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	s.logger.Info().Str("code", customer.Code).Msg("customer registered")
	return customer, nil
}

func (s *CustomerService) GetByAuthUID(ctx context.Context, authUID string) (*models.Customer, error) {
	return s.repo.GetCustomerByAuthUID(ctx, authUID)
}

func (s *CustomerService) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	return s.repo.GetCustomerByID(ctx, id)
}

func (s *CustomerService) GetAll(ctx context.Context) ([]*models.Customer, error) {
	return s.repo.GetAllCustomers(ctx)
}

func (s *CustomerService) UpdateProfile(ctx context.Context, customer *models.Customer) error {
	return s.repo.UpdateCustomerProfile(ctx, customer)
}

func (s *CustomerService) TouchActivity(ctx context.Context, id int64) error {
	return s.repo.UpdateCustomerActivity(ctx, id)
}
