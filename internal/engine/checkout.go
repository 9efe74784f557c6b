// internal/engine/checkout.go
package engine

import (
	"vendingbackend/internal/command"
	"vendingbackend/internal/ledger"
	"vendingbackend/internal/logger"
	"vendingbackend/internal/payment"
)

// BeginCheckout announces the checkout page. The cart must hold at least one
// line; the full validation happens in Checkout.
func (e *Engine) BeginCheckout() error {
	e.mu.Lock()
	empty := e.cart.Len() == 0
	e.mu.Unlock()

	if empty {
		return &payment.ValidationError{Reason: "empty cart"}
	}
	e.notify(command.Checkout)
	return nil
}

// Checkout validates the payment descriptor and commits the cart into an
// immutable transaction record. Any validation failure aborts with no side
// effects on stock, cart or ledger. On success the cart's reservations become
// permanent history: stock quantities are NOT deducted again (they moved when
// the units were reserved) and the cart is emptied without re-crediting.
func (e *Engine) Checkout(details payment.Details) (string, error) {
	e.mu.Lock()

	if e.cart.Len() == 0 {
		e.mu.Unlock()
		return "", &payment.ValidationError{Reason: "empty cart"}
	}
	if err := payment.Validate(details); err != nil {
		e.mu.Unlock()
		return "", err
	}

	id, err := e.ledger.NewID()
	if err != nil {
		e.mu.Unlock()
		return "", err
	}

	lines := make([]ledger.Line, 0, e.cart.Len())
	for _, l := range e.cart.Lines() {
		lines = append(lines, ledger.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	tx := ledger.Transaction{
		ID:      id,
		Lines:   lines,
		Total:   e.cart.Total(),
		Payment: payment.Summarize(details),
	}

	// Sinks are written inside the critical section so no reader can observe
	// a committed transaction without the matching inventory state.
	if err := e.ledger.Append(tx); err != nil {
		e.mu.Unlock()
		return "", err
	}
	if err := e.ledger.AppendPaymentRecord(tx); err != nil {
		logger.LogError("Failed to append payment record for %s: %v", id, err)
	}
	if e.mirror != nil {
		if err := e.mirror.InsertTransaction(tx); err != nil {
			logger.LogError("Failed to mirror transaction %s: %v", id, err)
		}
		if err := e.mirror.SyncProducts(e.stock.Products()); err != nil {
			logger.LogError("Failed to mirror inventory after %s: %v", id, err)
		}
	}

	e.cart.Discard()
	if err := e.saveInventoryLocked(); err != nil {
		logger.LogError("Failed to save inventory after %s: %v", id, err)
	}
	e.mu.Unlock()

	e.notify(command.OrderComplete)
	logger.LogInfo("Transaction %s committed, total £%.2f", id, tx.Total)
	return id, nil
}
