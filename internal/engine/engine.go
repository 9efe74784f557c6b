// internal/engine/engine.go
package engine

import (
	"errors"
	"fmt"
	"sync"

	"vendingbackend/internal/cart"
	"vendingbackend/internal/command"
	"vendingbackend/internal/ledger"
	"vendingbackend/internal/logger"
	"vendingbackend/internal/stock"
)

var (
	ErrNotOutOfStock   = errors.New("product is not out of stock")
	ErrNoBaseline      = errors.New("no baseline stock for product")
	ErrProductReserved = errors.New("product is reserved in the cart")
)

// Notifier receives command tokens for the connected observer. Implementations
// must never block the caller.
type Notifier interface {
	Notify(command.Token)
}

// Mirror is the relational persistence port.
type Mirror interface {
	SyncProducts([]stock.Product) error
	UpsertProduct(stock.Product) error
	DeleteProduct(id int) error
	InsertTransaction(ledger.Transaction) error
}

// Engine owns the shared mutable state of the terminal: the stock ledger and
// the single shopper's cart. Every mutation of either runs under one mutex
// covering both. Each mutation is a conserved transfer between them, and
// seeing one side without the other would break the conservation invariant.
// Persistence writes happen inside the same critical section as the mutation
// they accompany. Command notifications are enqueued after the lock is
// released and never block.
type Engine struct {
	mu       sync.Mutex
	stock    *stock.Ledger
	baseline *stock.Ledger
	cart     *cart.Session
	ledger   *ledger.Ledger
	mirror   Mirror
	notifier Notifier

	inventoryPath string
}

// Options wires the engine's collaborators. Mirror and Notifier may be nil.
type Options struct {
	Stock         *stock.Ledger
	Baseline      *stock.Ledger
	Ledger        *ledger.Ledger
	Mirror        Mirror
	Notifier      Notifier
	InventoryPath string
}

func New(opts Options) *Engine {
	e := &Engine{
		stock:         opts.Stock,
		baseline:      opts.Baseline,
		cart:          cart.NewSession(),
		ledger:        opts.Ledger,
		mirror:        opts.Mirror,
		notifier:      opts.Notifier,
		inventoryPath: opts.InventoryPath,
	}
	if e.stock == nil {
		e.stock = stock.NewLedger()
	}
	return e
}

// ViewProducts returns the inventory snapshot and announces the view.
func (e *Engine) ViewProducts() []stock.Product {
	e.mu.Lock()
	products := e.stock.Products()
	e.mu.Unlock()

	e.notify(command.View)
	return products
}

// Products returns the inventory snapshot without emitting a command.
func (e *Engine) Products() []stock.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stock.Products()
}

// Product returns one record.
func (e *Engine) Product(id int) (stock.Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stock.Get(id)
}

// AddUnit reserves one unit into the cart.
func (e *Engine) AddUnit(productID int) error {
	e.mu.Lock()
	err := e.cart.AddUnit(e.stock, productID)
	if err == nil {
		err = e.saveInventoryLocked()
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.notify(command.Add)
	return nil
}

// SetQuantity edits a cart line to an absolute quantity.
func (e *Engine) SetQuantity(productID, quantity int) error {
	e.mu.Lock()
	err := e.cart.SetQuantity(e.stock, productID, quantity)
	if err == nil {
		err = e.saveInventoryLocked()
	}
	e.mu.Unlock()
	return err
}

// RemoveLine releases a full reservation and drops the line.
func (e *Engine) RemoveLine(productID int) error {
	e.mu.Lock()
	err := e.cart.RemoveLine(e.stock, productID)
	if err == nil {
		err = e.saveInventoryLocked()
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.notify(command.Remove)
	return nil
}

// ClearCart releases every reservation.
func (e *Engine) ClearCart() error {
	e.mu.Lock()
	e.cart.Clear(e.stock)
	err := e.saveInventoryLocked()
	e.mu.Unlock()
	return err
}

// ViewCart returns the cart snapshot and total, announcing the view.
func (e *Engine) ViewCart() ([]cart.Line, float64) {
	e.mu.Lock()
	lines := e.cart.Lines()
	total := e.cart.Total()
	e.mu.Unlock()

	e.notify(command.Cart)
	return lines, total
}

// CartLines returns the cart snapshot without emitting a command.
func (e *Engine) CartLines() []cart.Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Lines()
}

// CartTotal returns the running total.
func (e *Engine) CartTotal() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Total()
}

// BackToMenu announces a return to the main menu.
func (e *Engine) BackToMenu() {
	e.notify(command.MainMenu)
}

// Shutdown tells the observer the session is over.
func (e *Engine) Shutdown() {
	e.notify(command.Exit)
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

// AddProduct creates a new product with the next free id.
func (e *Engine) AddProduct(name string, price float64, quantity int) (stock.Product, error) {
	if price < 0 || quantity < 0 {
		return stock.Product{}, fmt.Errorf("price and quantity must be non-negative")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := stock.Product{ID: e.stock.NextID(), Name: name, Price: price, Quantity: quantity}
	e.stock.Upsert(p)
	if err := e.saveInventoryLocked(); err != nil {
		return stock.Product{}, err
	}
	e.mirrorUpsertLocked(p)
	logger.LogInfo("Added product %d (%s)", p.ID, p.Name)
	return p, nil
}

// EditProduct updates name and price of an existing product.
func (e *Engine) EditProduct(id int, name string, price float64) error {
	if price < 0 {
		return fmt.Errorf("price must be non-negative")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.stock.Get(id)
	if err != nil {
		return err
	}
	p.Name = name
	p.Price = price
	e.stock.Upsert(p)
	if err := e.saveInventoryLocked(); err != nil {
		return err
	}
	e.mirrorUpsertLocked(p)
	return nil
}

// RemoveProduct deletes a product record. Removal is refused while the
// product has units reserved in the cart: deleting the record would strand
// the reservation with nowhere to release to. Confirming intent is the
// caller's responsibility.
func (e *Engine) RemoveProduct(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if qty := e.cart.Quantity(id); qty > 0 {
		return fmt.Errorf("product %d (%d unit(s) in cart): %w", id, qty, ErrProductReserved)
	}
	if err := e.stock.Remove(id); err != nil {
		return err
	}
	if err := e.saveInventoryLocked(); err != nil {
		return err
	}
	if e.mirror != nil {
		if err := e.mirror.DeleteProduct(id); err != nil {
			logger.LogError("Failed to mirror product removal %d: %v", id, err)
		}
	}
	logger.LogInfo("Removed product %d", id)
	return nil
}

// Refill restores an out-of-stock product to its baseline quantity. Only
// products at zero quantity can be refilled, matching the terminal's
// restocking workflow.
func (e *Engine) Refill(id int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.stock.Get(id)
	if err != nil {
		return 0, err
	}
	if p.Quantity != 0 {
		return p.Quantity, fmt.Errorf("%s: %w", p.Name, ErrNotOutOfStock)
	}
	if e.baseline == nil {
		return 0, fmt.Errorf("product %d: %w", id, ErrNoBaseline)
	}
	base, err := e.baseline.Get(id)
	if err != nil {
		return 0, fmt.Errorf("product %d: %w", id, ErrNoBaseline)
	}

	p.Quantity = base.Quantity
	e.stock.Upsert(p)
	if err := e.saveInventoryLocked(); err != nil {
		return 0, err
	}
	e.mirrorUpsertLocked(p)
	logger.LogInfo("Refilled product %d (%s) to %d", p.ID, p.Name, p.Quantity)
	return p.Quantity, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (e *Engine) notify(t command.Token) {
	if e.notifier != nil {
		e.notifier.Notify(t)
	}
}

// saveInventoryLocked persists the stock file. Callers hold e.mu.
func (e *Engine) saveInventoryLocked() error {
	if e.inventoryPath == "" {
		return nil
	}
	return stock.SaveFile(e.stock, e.inventoryPath)
}

// mirrorUpsertLocked mirrors a product record, logging instead of failing:
// the flat file has already been written and stays authoritative for stock.
func (e *Engine) mirrorUpsertLocked(p stock.Product) {
	if e.mirror == nil {
		return
	}
	if err := e.mirror.UpsertProduct(p); err != nil {
		logger.LogError("Failed to mirror product %d: %v", p.ID, err)
	}
}
