// Package directory реализует справочник клиентов.
package directory

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// Service описывает операции справочника клиентов.
type Service interface {
	Create(customer domain.Customer) (domain.Customer, error)
	Get(id string) (domain.Customer, error)
	GetByEmail(email string) (domain.Customer, error)
	List() ([]domain.Customer, error)
	Update(id string, customer domain.Customer) (domain.Customer, error)
	Delete(id string) error
	Exists(id string) (bool, error)
}

type service struct {
	customers domain.CustomerRepository
	logger    *log.Entry
}

// NewService создаёт сервис справочника клиентов.
func NewService(customers domain.CustomerRepository, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "directory")
	}
	return &service{
		customers: customers,
		logger:    logger,
	}
}

func (s *service) Create(customer domain.Customer) (domain.Customer, error) {
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	created, err := s.customers.Create(customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithFields(log.Fields{
		"customer_id": created.ID,
		"email":       created.Email,
	}).Info("customer created")
	return created, nil
}

func (s *service) Get(id string) (domain.Customer, error) {
	return s.customers.Get(id)
}

func (s *service) GetByEmail(email string) (domain.Customer, error) {
	return s.customers.GetByEmail(email)
}

func (s *service) List() ([]domain.Customer, error) {
	return s.customers.List()
}

// Update перезаписывает поля клиента. Уникальность новой почты
// проверяет хранилище, поэтому смена на занятый адрес даёт ErrEmailTaken
// и не затирает чужую запись.
func (s *service) Update(id string, customer domain.Customer) (domain.Customer, error) {
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	customer.ID = id
	if err := s.customers.Update(customer); err != nil {
		return domain.Customer{}, err
	}
	return s.customers.Get(id)
}

func (s *service) Delete(id string) error {
	if err := s.customers.Delete(id); err != nil {
		return err
	}
	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}

func (s *service) Exists(id string) (bool, error) {
	return s.customers.Exists(id)
}

var _ Service = (*service)(nil)
