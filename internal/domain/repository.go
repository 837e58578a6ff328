package domain

// ProductRepository описывает требования к хранилищу товаров.
// Хранилище само назначает идентификаторы и отметки времени при записи.
type ProductRepository interface {
	// Create сохраняет новый товар и возвращает его с назначенным ID.
	Create(product Product) (Product, error)
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// List возвращает все товары, отсортированные по имени.
	List() ([]Product, error)
	// ListByCategory возвращает товары категории, отсортированные по имени.
	ListByCategory(category string) ([]Product, error)
	// ListByPriceRange возвращает товары с ценой в [minMinor, maxMinor], по возрастанию цены.
	ListByPriceRange(minMinor, maxMinor int64) ([]Product, error)
	// Update перезаписывает изменяемые поля товара, кроме остатка.
	Update(product Product) error
	// Delete удаляет товар или возвращает ErrProductNotFound.
	Delete(id string) error
	// Exists сообщает, существует ли товар.
	Exists(id string) (bool, error)
	// AdjustStock атомарно применяет stock += delta.
	// Возвращает ErrInsufficientStock, если итог ушёл бы в минус; остаток не меняется.
	AdjustStock(id string, delta int32) (Product, error)
}

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Create сохраняет клиента; занятая почта даёт ErrEmailTaken.
	Create(customer Customer) (Customer, error)
	// Get возвращает клиента по идентификатору или ErrCustomerNotFound.
	Get(id string) (Customer, error)
	// GetByEmail возвращает клиента по почте или ErrCustomerNotFound.
	GetByEmail(email string) (Customer, error)
	// List возвращает всех клиентов.
	List() ([]Customer, error)
	// Update перезаписывает поля клиента; смена почты на занятую даёт ErrEmailTaken.
	Update(customer Customer) error
	// Delete удаляет клиента или возвращает ErrCustomerNotFound.
	Delete(id string) error
	// Exists сообщает, существует ли клиент.
	Exists(id string) (bool, error)
}

// OrderRepository описывает требования к хранилищу заказов.
// Create и Cancel выполняются как единая атомарная операция вместе
// со списанием/возвратом остатков, чтобы не оставлять частичное состояние.
type OrderRepository interface {
	// Create сохраняет шапку, позиции и списывает остатки одним юнитом работы.
	// Нехватка остатка по любой позиции откатывает всё и даёт ErrInsufficientStock.
	Create(order Order) (Order, error)
	// Get возвращает шапку заказа (без позиций) или ErrOrderNotFound.
	Get(id string) (Order, error)
	// List возвращает заказы, новые первыми, с опциональным лимитом.
	List(limit int) ([]Order, error)
	// ListByCustomer возвращает заказы клиента, новые первыми.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// ListByStatus возвращает заказы в заданном статусе, новые первыми.
	ListByStatus(status OrderStatus, limit int) ([]Order, error)
	// Save применяет обновление шапки с учётом optimistic locking.
	Save(order Order) error
	// Cancel возвращает остатки по всем позициям и переводит заказ в cancelled
	// одним юнитом работы; проверяет версию как Save.
	Cancel(order Order) error
	// Delete удаляет позиции, затем шапку; остатки не трогает.
	Delete(id string) error
	// Exists сообщает, существует ли заказ.
	Exists(id string) (bool, error)
}

// OrderItemRepository описывает хранилище позиций заказа. Чистый слой
// маппинга без бизнес-правил; оркестратор подгружает через него позиции.
type OrderItemRepository interface {
	Create(item OrderItem) (OrderItem, error)
	Get(id string) (OrderItem, error)
	ListByOrder(orderID string) ([]OrderItem, error)
	Update(item OrderItem) error
	Delete(id string) error
	DeleteByOrder(orderID string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
