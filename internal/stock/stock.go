// internal/stock/stock.go
package stock

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOutOfStock        = errors.New("out of stock")
)

// Product is one inventory record. Quantity never goes negative.
type Product struct {
	ID       int
	Name     string
	Price    float64
	Quantity int
}

// Ledger is the authoritative product map. It carries no lock of its own:
// all access happens under the engine's mutual-exclusion domain, which also
// covers the cart so that reservation transfers are never half-visible.
type Ledger struct {
	products map[int]Product
}

func NewLedger() *Ledger {
	return &Ledger{products: make(map[int]Product)}
}

// Get returns the product record for id.
func (l *Ledger) Get(id int) (Product, error) {
	p, ok := l.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	return p, nil
}

// Adjust applies delta to the on-hand quantity and returns the new quantity.
// A negative delta that would drive the quantity below zero fails with
// ErrInsufficientStock and leaves the record unchanged.
func (l *Ledger) Adjust(id int, delta int) (int, error) {
	p, ok := l.products[id]
	if !ok {
		return 0, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	next := p.Quantity + delta
	if next < 0 {
		return p.Quantity, fmt.Errorf("product %d (have %d, want %d): %w",
			id, p.Quantity, -delta, ErrInsufficientStock)
	}
	p.Quantity = next
	l.products[id] = p
	return next, nil
}

// Upsert creates or replaces a product record.
func (l *Ledger) Upsert(p Product) {
	l.products[p.ID] = p
}

// NextID returns max existing id + 1, or 1 for an empty ledger.
// Used by the admin add-item path.
func (l *Ledger) NextID() int {
	max := 0
	for id := range l.products {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// Remove deletes a product record. Confirmation of intent is the caller's job.
func (l *Ledger) Remove(id int) error {
	if _, ok := l.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	delete(l.products, id)
	return nil
}

// Products returns a snapshot of all records ordered by id.
func (l *Ledger) Products() []Product {
	out := make([]Product, 0, len(l.products))
	for _, p := range l.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of product records.
func (l *Ledger) Len() int {
	return len(l.products)
}
