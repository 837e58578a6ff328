package memory

import (
	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// timelineRepository — in-memory журнал событий жизненного цикла заказов.
type timelineRepository struct {
	store *Store
}

// NewTimelineRepository возвращает in-memory реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{store: store}
}

// Append добавляет событие в конец журнала заказа.
func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.timeline[event.OrderID] = append(r.store.timeline[event.OrderID], event)
	return nil
}

// List возвращает события заказа в порядке добавления.
func (r *timelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	events := r.store.timeline[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
