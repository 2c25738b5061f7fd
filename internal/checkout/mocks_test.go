package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/artisan-shop/internal/catalog"
	"github.com/example/artisan-shop/internal/order"
	"github.com/example/artisan-shop/internal/shipping"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memStore is an in-memory stand-in for the order store with real
// transaction semantics: writes inside WithinTx become visible only on
// commit, and any error discards them all.
type memStore struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
	methods  map[string]*shipping.Method
	orders   []*order.Order

	txErr error // injected transient failure
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[string]*catalog.Product),
		methods:  make(map[string]*shipping.Method),
	}
}

func (s *memStore) addProduct(id, name string, price string, stock int) {
	s.products[id] = &catalog.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func (s *memStore) addMethod(id, name, price string) {
	s.methods[id] = &shipping.Method{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
	}
}

func (s *memStore) stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) FindBySessionID(_ context.Context, sessionID string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ProviderSessionID == sessionID {
			return o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.txErr != nil {
		return s.txErr
	}

	tx := &memTx{store: s, stock: make(map[string]int)}
	if err := fn(tx); err != nil {
		return err
	}

	// Commit
	for id, delta := range tx.stock {
		s.products[id].Stock -= delta
	}
	s.orders = append(s.orders, tx.orders...)
	return nil
}

// memTx buffers writes until commit.
type memTx struct {
	store  *memStore
	orders []*order.Order
	stock  map[string]int // productID -> pending decrement
	nextID int
}

func (t *memTx) CreateOrder(_ context.Context, o *order.Order) error {
	for _, existing := range t.store.orders {
		if existing.ProviderSessionID == o.ProviderSessionID {
			return order.ErrDuplicateSession
		}
	}
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%d", len(t.store.orders)+1)
	}
	t.orders = append(t.orders, o)
	return nil
}

func (t *memTx) CreateLineItem(_ context.Context, orderID, productID string, quantity int) (*order.LineItem, error) {
	t.nextID++
	return &order.LineItem{
		ID:        fmt.Sprintf("li-%d", t.nextID),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: decimal.Zero,
	}, nil
}

func (t *memTx) UpdateLineItemPrice(_ context.Context, lineItemID string, price decimal.Decimal) error {
	for _, o := range t.orders {
		for i := range o.Items {
			if o.Items[i].ID == lineItemID {
				o.Items[i].UnitPrice = price
				return nil
			}
		}
	}
	return order.ErrLineItemNotFound
}

func (t *memTx) DecrementStockIfSufficient(_ context.Context, productID string, quantity int) (bool, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return false, nil
	}
	if p.Stock-t.stock[productID] < quantity {
		return false, nil
	}
	t.stock[productID] += quantity
	return true, nil
}

func (t *memTx) FindProduct(_ context.Context, productID string) (*catalog.Product, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) FindShippingMethod(_ context.Context, methodID string) (*shipping.Method, error) {
	m, ok := t.store.methods[methodID]
	if !ok {
		return nil, shipping.ErrMethodNotFound
	}
	cm := *m
	return &cm, nil
}

// memLedger records processed deliveries in memory.
type memLedger struct {
	mu     sync.Mutex
	seen   map[string]bool
	failed bool
}

func newMemLedger() *memLedger {
	return &memLedger{seen: make(map[string]bool)}
}

func (l *memLedger) SeenWebhookEvent(_ context.Context, provider, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed {
		return false, fmt.Errorf("ledger unavailable")
	}
	return l.seen[provider+"/"+eventID], nil
}

func (l *memLedger) RecordWebhookEvent(_ context.Context, provider, eventID, eventType string, payload []byte, processingErr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed {
		return fmt.Errorf("ledger unavailable")
	}
	l.seen[provider+"/"+eventID] = true
	return nil
}

// memPublisher captures published events.
type memPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *memPublisher) Publish(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
