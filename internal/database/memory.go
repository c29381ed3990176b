package database

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/models"
)

// MemoryRepository keeps everything in process.
type MemoryRepository struct {
	mu       sync.Mutex
	carts    map[string]map[string]int
	orders   map[string]OrderRecord
	payments map[string]PaymentRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts:    make(map[string]map[string]int),
		orders:   make(map[string]OrderRecord),
		payments: make(map[string]PaymentRecord),
	}
}

func (m *MemoryRepository) SetCartLine(_ context.Context, userID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.carts[userID]
	if !ok {
		lines = make(map[string]int)
		m.carts[userID] = lines
	}
	if quantity <= 0 {
		delete(lines, productID)
		return nil
	}
	lines[productID] = quantity
	return nil
}

func (m *MemoryRepository) CartLines(_ context.Context, userID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.carts[userID]))
	for id, qty := range m.carts[userID] {
		out[id] = qty
	}
	return out, nil
}

func (m *MemoryRepository) CreateOrder(_ context.Context, order OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.orders {
		if existing.Number == order.Number {
			return ErrDuplicate
		}
	}
	order.Items = append([]models.OrderItem(nil), order.Items...)
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryRepository) FindOrder(_ context.Context, id string) (OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return OrderRecord{}, ErrNotFound
	}
	return order, nil
}

func (m *MemoryRepository) FindOrderByNumber(_ context.Context, number string) (OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.Number == number {
			return order, nil
		}
	}
	return OrderRecord{}, ErrNotFound
}

func (m *MemoryRepository) SetOrderStatus(_ context.Context, id string, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	m.orders[id] = order
	return nil
}

func (m *MemoryRepository) ListOrders(_ context.Context, userID string, page, limit int64) ([]OrderRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []OrderRecord
	for _, order := range m.orders {
		if order.UserID == userID {
			mine = append(mine, order)
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		if mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].Number > mine[j].Number
		}
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})

	total := int64(len(mine))
	start := (page - 1) * limit
	if start >= total {
		return []OrderRecord{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return mine[start:end], total, nil
}

func (m *MemoryRepository) CreatePayment(_ context.Context, payment PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.OrderID == payment.OrderID {
			return ErrDuplicate
		}
		if payment.IdempotencyKey != "" && existing.IdempotencyKey == payment.IdempotencyKey {
			return ErrDuplicate
		}
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *MemoryRepository) FindPaymentByKey(_ context.Context, key string) (PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, payment := range m.payments {
		if key != "" && payment.IdempotencyKey == key {
			return payment, nil
		}
	}
	return PaymentRecord{}, ErrNotFound
}
