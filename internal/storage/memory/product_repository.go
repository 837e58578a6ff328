package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// productRepository — in-memory реализация ProductRepository поверх общего Store.
type productRepository struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

// Create сохраняет товар, назначая идентификатор и отметки времени.
func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	r.store.products[product.ID] = product
	return product, nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepository) Get(id string) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// List возвращает все товары, отсортированные по имени.
func (r *productRepository) List() ([]domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.store.products))
	for _, product := range r.store.products {
		result = append(result, product)
	}
	sortProductsByName(result)
	return result, nil
}

// ListByCategory возвращает товары категории, отсортированные по имени.
func (r *productRepository) ListByCategory(category string) ([]domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, product := range r.store.products {
		if product.Category == category {
			result = append(result, product)
		}
	}
	sortProductsByName(result)
	return result, nil
}

// ListByPriceRange возвращает товары с ценой в границах включительно, по возрастанию цены.
func (r *productRepository) ListByPriceRange(minMinor, maxMinor int64) ([]domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, product := range r.store.products {
		if product.PriceMinor >= minMinor && product.PriceMinor <= maxMinor {
			result = append(result, product)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PriceMinor != result[j].PriceMinor {
			return result[i].PriceMinor < result[j].PriceMinor
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Update перезаписывает изменяемые поля товара. Остаток меняется только через AdjustStock.
func (r *productRepository) Update(product domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}

	current.Name = product.Name
	current.Description = product.Description
	current.PriceMinor = product.PriceMinor
	current.Category = product.Category
	current.UpdatedAt = time.Now().UTC()
	r.store.products[current.ID] = current
	return nil
}

// Delete удаляет товар или возвращает ErrProductNotFound.
func (r *productRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.store.products, id)
	return nil
}

// Exists сообщает, существует ли товар.
func (r *productRepository) Exists(id string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, ok := r.store.products[id]
	return ok, nil
}

// AdjustStock атомарно применяет stock += delta под общим замком store.
func (r *productRepository) AdjustStock(id string, delta int32) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.adjustStockLocked(id, delta)
}

// adjustStockLocked применяет дельту к остатку. Вызывающий держит write lock.
func (s *Store) adjustStockLocked(id string, delta int32) (domain.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if product.Stock+delta < 0 {
		return domain.Product{}, insufficientStock(product.Name)
	}

	product.Stock += delta
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	return product, nil
}

func sortProductsByName(products []domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
}

var _ domain.ProductRepository = (*productRepository)(nil)
