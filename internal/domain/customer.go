package domain

import (
	"strings"
	"time"
)

// Customer описывает клиента магазина. Почта уникальна в пределах всего справочника.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет поля клиента перед записью и возвращает список замечаний.
func (c *Customer) Validate() []error {
	var errs []error

	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if !strings.Contains(c.Email, "@") {
		errs = append(errs, ErrEmailInvalid)
	}

	return errs
}
