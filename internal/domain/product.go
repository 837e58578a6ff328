package domain

import (
	"strings"
	"time"
)

// Product описывает товар каталога и его текущий остаток на складе.
// Остаток меняется только через атомарный AdjustStock хранилища.
type Product struct {
	ID          string
	Name        string
	Description string
	// PriceMinor — цена за единицу в минимальных денежных единицах (например, копейки).
	PriceMinor int64
	// Stock — количество единиц на складе, инвариант stock >= 0.
	Stock     int32
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет поля товара перед записью и возвращает список замечаний.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor <= 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrProductStockNegative)
	}

	return errs
}
