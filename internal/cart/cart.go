// internal/cart/cart.go
package cart

import (
	"errors"
	"fmt"
	"sort"

	"vendingbackend/internal/stock"
)

var (
	ErrNotInCart       = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Line is one reserved selection. Its quantity has already been subtracted
// from the matching product's on-hand quantity, so for every line:
//
//	onHand(original) == onHand(now) + line.Quantity
//
// The sum is conserved across every add/remove/edit.
type Line struct {
	ProductID int
	Name      string
	UnitPrice float64
	Quantity  int
}

// Session is the single active shopper's cart. Like stock.Ledger it carries
// no lock of its own: every mutation is a transfer between the two structures
// and runs under the engine's mutual-exclusion domain.
type Session struct {
	lines map[int]Line
}

func NewSession() *Session {
	return &Session{lines: make(map[int]Line)}
}

// AddUnit reserves one unit of the product: decrements the ledger by one and
// increments (or creates) the matching line. Fails with stock.ErrOutOfStock
// when nothing is on hand, leaving both sides unchanged.
func (s *Session) AddUnit(ledger *stock.Ledger, productID int) error {
	p, err := ledger.Get(productID)
	if err != nil {
		return err
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("%s: %w", p.Name, stock.ErrOutOfStock)
	}
	if _, err := ledger.Adjust(productID, -1); err != nil {
		return err
	}

	line, ok := s.lines[productID]
	if !ok {
		line = Line{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price}
	}
	line.Quantity++
	s.lines[productID] = line
	return nil
}

// SetQuantity moves the line to newQuantity. Increases require enough on-hand
// stock to cover the delta and fail with stock.ErrInsufficientStock otherwise;
// decreases release unconditionally. Zero is equivalent to RemoveLine.
func (s *Session) SetQuantity(ledger *stock.Ledger, productID, newQuantity int) error {
	if newQuantity < 0 {
		return fmt.Errorf("quantity %d: %w", newQuantity, ErrInvalidQuantity)
	}
	line, ok := s.lines[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, ErrNotInCart)
	}
	if newQuantity == 0 {
		return s.RemoveLine(ledger, productID)
	}

	delta := newQuantity - line.Quantity
	if delta == 0 {
		return nil
	}
	// Adjust enforces the no-negative invariant for increases; the matching
	// release on decrease can never fail.
	if _, err := ledger.Adjust(productID, -delta); err != nil {
		return err
	}

	line.Quantity = newQuantity
	s.lines[productID] = line
	return nil
}

// RemoveLine releases the full reservation back to the ledger and deletes the
// line.
func (s *Session) RemoveLine(ledger *stock.Ledger, productID int) error {
	line, ok := s.lines[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, ErrNotInCart)
	}
	if _, err := ledger.Adjust(productID, line.Quantity); err != nil {
		return err
	}
	delete(s.lines, productID)
	return nil
}

// Clear releases every reservation and empties the cart. Releases are
// unconditional, so the operation cannot partially fail.
func (s *Session) Clear(ledger *stock.Ledger) {
	for id, line := range s.lines {
		_, _ = ledger.Adjust(id, line.Quantity)
	}
	s.lines = make(map[int]Line)
}

// Discard empties the cart without releasing reservations. Used exclusively
// by checkout commit, where the deductions become permanent history.
func (s *Session) Discard() {
	s.lines = make(map[int]Line)
}

// Total is the sum of line subtotals. Pure; no side effects.
func (s *Session) Total() float64 {
	total := 0.0
	for _, line := range s.lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// Quantity returns the reserved quantity for a product, zero if absent.
func (s *Session) Quantity(productID int) int {
	return s.lines[productID].Quantity
}

// Lines returns a snapshot of the cart ordered by product id.
func (s *Session) Lines() []Line {
	out := make([]Line, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Len returns the number of distinct lines.
func (s *Session) Len() int {
	return len(s.lines)
}
