package store

import (
	"context"
	"sync"

	"vendora_back_end/internal/models"

	"github.com/gocql/gocql"
)

// MemoryStore — implémentation en mémoire de la frontière de persistance,
// utilisée en mode dev et dans les tests. Même sémantique CAS que Scylla :
// l'écriture n'est appliquée que si le statut courant correspond.
type MemoryStore struct {
	mu             sync.RWMutex
	orders         map[gocql.UUID]models.Order
	payments       map[gocql.UUID]models.Payment  // clé = order_id
	shippings      map[gocql.UUID]models.Shipping // clé = order_id
	escrows        map[gocql.UUID]models.Escrow   // clé = order_id
	returnRequests map[gocql.UUID]models.ReturnRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:         make(map[gocql.UUID]models.Order),
		payments:       make(map[gocql.UUID]models.Payment),
		shippings:      make(map[gocql.UUID]models.Shipping),
		escrows:        make(map[gocql.UUID]models.Escrow),
		returnRequests: make(map[gocql.UUID]models.ReturnRequest),
	}
}

func copyOrder(o models.Order) *models.Order {
	c := o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return &c
}

func (m *MemoryStore) InsertOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (m *MemoryStore) UpdateOrderCAS(ctx context.Context, o *models.Order, expected models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrConflict
	}
	m.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (m *MemoryStore) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []*models.Order
	for _, o := range m.orders {
		if o.Status == status {
			orders = append(orders, copyOrder(o))
		}
	}
	return orders, nil
}

func (m *MemoryStore) SavePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.OrderID] = *p
	return nil
}

func (m *MemoryStore) GetPaymentByOrder(ctx context.Context, orderID gocql.UUID) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	c := p
	return &c, nil
}

func (m *MemoryStore) SaveShipping(ctx context.Context, s *models.Shipping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	c.Events = append([]models.ShippingEvent(nil), s.Events...)
	m.shippings[s.OrderID] = c
	return nil
}

func (m *MemoryStore) GetShippingByOrder(ctx context.Context, orderID gocql.UUID) (*models.Shipping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shippings[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	c := s
	c.Events = append([]models.ShippingEvent(nil), s.Events...)
	return &c, nil
}

func (m *MemoryStore) InsertEscrow(ctx context.Context, e *models.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escrows[e.OrderID] = *e
	return nil
}

func (m *MemoryStore) GetEscrowByOrder(ctx context.Context, orderID gocql.UUID) (*models.Escrow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.escrows[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	c := e
	return &c, nil
}

func (m *MemoryStore) UpdateEscrowCAS(ctx context.Context, e *models.Escrow, expected models.EscrowStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.escrows[e.OrderID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrConflict
	}
	m.escrows[e.OrderID] = *e
	return nil
}

func (m *MemoryStore) ListHeldEscrows(ctx context.Context) ([]*models.Escrow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var escrows []*models.Escrow
	for _, e := range m.escrows {
		if e.Status == models.EscrowHeld {
			c := e
			escrows = append(escrows, &c)
		}
	}
	return escrows, nil
}

func (m *MemoryStore) InsertReturnRequest(ctx context.Context, r *models.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnRequests[r.ID] = *r
	return nil
}

func (m *MemoryStore) GetReturnRequest(ctx context.Context, id gocql.UUID) (*models.ReturnRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.returnRequests[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := r
	return &c, nil
}

func (m *MemoryStore) ListReturnRequestsByOrder(ctx context.Context, orderID gocql.UUID) ([]*models.ReturnRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var requests []*models.ReturnRequest
	for _, r := range m.returnRequests {
		if r.OrderID == orderID {
			c := r
			requests = append(requests, &c)
		}
	}
	return requests, nil
}

func (m *MemoryStore) UpdateReturnRequest(ctx context.Context, r *models.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.returnRequests[r.ID]; !ok {
		return ErrNotFound
	}
	m.returnRequests[r.ID] = *r
	return nil
}
