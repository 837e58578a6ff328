package domain

import "time"

// TimelineEvent — одна запись аудит-истории заказа. События
// добавляются только в конец и никогда не редактируются.
type TimelineEvent struct {
	OrderID string
	// Type совпадает с типом доменного события, например "order.created".
	Type     string
	Reason   string
	Occurred time.Time
}
