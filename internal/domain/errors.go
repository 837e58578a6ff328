package domain

import "errors"

var (
	// Ошибка пустого имени товара.
	ErrProductNameRequired = errors.New("product name cannot be empty")
	// Ошибка неположительной цены товара.
	ErrProductPriceInvalid = errors.New("product price must be greater than zero")
	// Ошибка отрицательного остатка при создании товара.
	ErrProductStockNegative = errors.New("product stock cannot be negative")
	// Ошибка пустой категории в запросе выборки.
	ErrCategoryRequired = errors.New("category cannot be empty")
	// Ошибка отрицательной границы ценового диапазона.
	ErrPriceRangeNegative = errors.New("price bounds cannot be negative")
	// Ошибка перевёрнутого ценового диапазона (min > max).
	ErrPriceRangeInverted = errors.New("min price cannot be greater than max price")
	// Ошибка пустого имени клиента.
	ErrCustomerNameRequired = errors.New("customer name cannot be empty")
	// Ошибка некорректного адреса почты.
	ErrEmailInvalid = errors.New("invalid email address")
	// Ошибка отсутствующего идентификатора клиента в заказе.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match items sum")
	// Ошибка неизвестного значения статуса заказа.
	ErrStatusUnknown = errors.New("unknown order status")

	// ErrProductNotFound возвращается, если товар не найден в хранилище.
	ErrProductNotFound = errors.New("product not found")
	// ErrCustomerNotFound возвращается, если клиент не найден в хранилище.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказ не найден в хранилище.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderItemNotFound возвращается, если позиция заказа не найдена.
	ErrOrderItemNotFound = errors.New("order item not found")

	// ErrEmailTaken возвращается при попытке зарегистрировать занятую почту.
	ErrEmailTaken = errors.New("email already registered")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении заказа.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrInsufficientStock возвращается, когда остатка товара не хватает под запрошенное количество.
	ErrInsufficientStock = errors.New("insufficient stock for product")

	// ErrOrderDelivered возвращается при попытке изменить доставленный заказ.
	ErrOrderDelivered = errors.New("cannot update a delivered order")
	// ErrOrderCancelled возвращается при попытке изменить отменённый заказ.
	ErrOrderCancelled = errors.New("cannot update a cancelled order")
	// ErrOrderAlreadyCancelled возвращается при повторной отмене заказа.
	ErrOrderAlreadyCancelled = errors.New("order is already cancelled")
	// ErrInvalidTransition возвращается, когда переход статуса не разрешён графом.
	ErrInvalidTransition = errors.New("status transition is not allowed")
)

// validationErrs перечисляет все ошибки класса "некорректные входные данные".
var validationErrs = []error{
	ErrProductNameRequired,
	ErrProductPriceInvalid,
	ErrProductStockNegative,
	ErrCategoryRequired,
	ErrPriceRangeNegative,
	ErrPriceRangeInverted,
	ErrCustomerNameRequired,
	ErrEmailInvalid,
	ErrCustomerRequired,
	ErrItemsRequired,
	ErrItemQtyInvalid,
	ErrItemPriceInvalid,
	ErrTotalMismatch,
	ErrStatusUnknown,
}

// IsNotFound проверяет, относится ли ошибка к классу "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderItemNotFound)
}

// IsValidation проверяет, относится ли ошибка к классу ошибок входных данных.
func IsValidation(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict проверяет, относится ли ошибка к конфликтам состояния хранилища.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrOrderVersionConflict) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsInvalidTransition проверяет, запрещён ли переход статуса заказа.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrOrderDelivered) ||
		errors.Is(err, ErrOrderCancelled) ||
		errors.Is(err, ErrOrderAlreadyCancelled) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
