package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// customerRepository — in-memory реализация CustomerRepository поверх общего Store.
type customerRepository struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

// Create сохраняет клиента; занятая почта даёт ErrEmailTaken.
func (r *customerRepository) Create(customer domain.Customer) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.emailTakenLocked(customer.Email, "") {
		return domain.Customer{}, domain.ErrEmailTaken
	}

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	r.store.customers[customer.ID] = customer
	return customer, nil
}

// Get возвращает клиента или ErrCustomerNotFound.
func (r *customerRepository) Get(id string) (domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	customer, ok := r.store.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// GetByEmail возвращает клиента по почте или ErrCustomerNotFound.
func (r *customerRepository) GetByEmail(email string) (domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, customer := range r.store.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

// List возвращает всех клиентов, отсортированных по имени.
func (r *customerRepository) List() ([]domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Customer, 0, len(r.store.customers))
	for _, customer := range r.store.customers {
		result = append(result, customer)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Update перезаписывает поля клиента; уникальность почты проверяется повторно.
func (r *customerRepository) Update(customer domain.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.customers[customer.ID]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	if r.emailTakenLocked(customer.Email, customer.ID) {
		return domain.ErrEmailTaken
	}

	current.Name = customer.Name
	current.Email = customer.Email
	current.Phone = customer.Phone
	current.Address = customer.Address
	current.UpdatedAt = time.Now().UTC()
	r.store.customers[current.ID] = current
	return nil
}

// Delete удаляет клиента или возвращает ErrCustomerNotFound.
func (r *customerRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(r.store.customers, id)
	return nil
}

// Exists сообщает, существует ли клиент.
func (r *customerRepository) Exists(id string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.customers[id]
	return ok, nil
}

// emailTakenLocked проверяет занятость почты, исключая exceptID (для update).
func (r *customerRepository) emailTakenLocked(email, exceptID string) bool {
	for _, customer := range r.store.customers {
		if customer.Email == email && customer.ID != exceptID {
			return true
		}
	}
	return false
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
