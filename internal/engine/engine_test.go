package engine

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"vendingbackend/internal/command"
	"vendingbackend/internal/ledger"
	"vendingbackend/internal/stock"
)

// recordingNotifier captures emitted tokens in order.
type recordingNotifier struct {
	mu     sync.Mutex
	tokens []command.Token
}

func (r *recordingNotifier) Notify(t command.Token) {
	r.mu.Lock()
	r.tokens = append(r.tokens, t)
	r.mu.Unlock()
}

func (r *recordingNotifier) emitted() []command.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Token(nil), r.tokens...)
}

// recordingMirror counts mirror calls and can be made to fail.
type recordingMirror struct {
	syncs        int
	upserts      []stock.Product
	deletes      []int
	transactions []ledger.Transaction
	fail         bool
}

func (m *recordingMirror) SyncProducts(products []stock.Product) error {
	if m.fail {
		return errors.New("mirror down")
	}
	m.syncs++
	return nil
}

func (m *recordingMirror) UpsertProduct(p stock.Product) error {
	if m.fail {
		return errors.New("mirror down")
	}
	m.upserts = append(m.upserts, p)
	return nil
}

func (m *recordingMirror) DeleteProduct(id int) error {
	if m.fail {
		return errors.New("mirror down")
	}
	m.deletes = append(m.deletes, id)
	return nil
}

func (m *recordingMirror) InsertTransaction(t ledger.Transaction) error {
	if m.fail {
		return errors.New("mirror down")
	}
	m.transactions = append(m.transactions, t)
	return nil
}

type fixture struct {
	engine   *Engine
	notifier *recordingNotifier
	mirror   *recordingMirror
	ledger   *ledger.Ledger
	invPath  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	stockLedger := stock.NewLedger()
	stockLedger.Upsert(stock.Product{ID: 1, Name: "Cola", Price: 1.50, Quantity: 5})
	stockLedger.Upsert(stock.Product{ID: 2, Name: "Crisps", Price: 0.80, Quantity: 3})
	stockLedger.Upsert(stock.Product{ID: 3, Name: "Gum", Price: 0.50, Quantity: 0})

	baseline := stock.NewLedger()
	baseline.Upsert(stock.Product{ID: 1, Name: "Cola", Price: 1.50, Quantity: 10})
	baseline.Upsert(stock.Product{ID: 3, Name: "Gum", Price: 0.50, Quantity: 20})

	txLedger, err := ledger.Open(filepath.Join(dir, "transactions.txt"))
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	mirror := &recordingMirror{}
	invPath := filepath.Join(dir, "inventory.txt")

	eng := New(Options{
		Stock:         stockLedger,
		Baseline:      baseline,
		Ledger:        txLedger,
		Mirror:        mirror,
		Notifier:      notifier,
		InventoryPath: invPath,
	})

	return &fixture{engine: eng, notifier: notifier, mirror: mirror, ledger: txLedger, invPath: invPath}
}

func (f *fixture) quantity(t *testing.T, id int) int {
	t.Helper()
	p, err := f.engine.Product(id)
	require.NoError(t, err)
	return p.Quantity
}

func TestViewProductsEmitsToken(t *testing.T) {
	f := newFixture(t)
	products := f.engine.ViewProducts()
	require.Len(t, products, 3)
	require.Equal(t, []command.Token{command.View}, f.notifier.emitted())
}

func TestAddUnitFlow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.AddUnit(1))
	require.Equal(t, 4, f.quantity(t, 1))
	require.Equal(t, []command.Token{command.Add}, f.notifier.emitted())

	// Failed adds emit nothing.
	require.ErrorIs(t, f.engine.AddUnit(3), stock.ErrOutOfStock)
	require.ErrorIs(t, f.engine.AddUnit(99), stock.ErrProductNotFound)
	require.Equal(t, []command.Token{command.Add}, f.notifier.emitted())
}

func TestAddUnitPersistsInventory(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.AddUnit(1))

	saved, err := stock.LoadFile(f.invPath)
	require.NoError(t, err)
	p, err := saved.Get(1)
	require.NoError(t, err)
	require.Equal(t, 4, p.Quantity)
}

func TestRemoveLineEmitsToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.AddUnit(1))
	require.NoError(t, f.engine.RemoveLine(1))

	require.Equal(t, 5, f.quantity(t, 1))
	require.Equal(t, []command.Token{command.Add, command.Remove}, f.notifier.emitted())
}

func TestSetQuantityEmitsNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.AddUnit(1))
	require.NoError(t, f.engine.SetQuantity(1, 3))

	require.Equal(t, 2, f.quantity(t, 1))
	require.Equal(t, []command.Token{command.Add}, f.notifier.emitted())
}

func TestNavigationTokens(t *testing.T) {
	f := newFixture(t)
	f.engine.BackToMenu()
	f.engine.ViewCart()
	f.engine.Shutdown()
	require.Equal(t,
		[]command.Token{command.MainMenu, command.Cart, command.Exit},
		f.notifier.emitted())
}

func TestAddProductAssignsNextID(t *testing.T) {
	f := newFixture(t)

	p, err := f.engine.AddProduct("Water", 1.00, 12)
	require.NoError(t, err)
	require.Equal(t, 4, p.ID)
	require.Equal(t, 12, f.quantity(t, 4))
	require.Len(t, f.mirror.upserts, 1)

	_, err = f.engine.AddProduct("Bad", -1, 1)
	require.Error(t, err)
}

func TestEditProduct(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.EditProduct(1, "Cherry Cola", 1.75))
	p, err := f.engine.Product(1)
	require.NoError(t, err)
	require.Equal(t, "Cherry Cola", p.Name)
	require.Equal(t, 1.75, p.Price)
	require.Equal(t, 5, p.Quantity)

	require.ErrorIs(t, f.engine.EditProduct(99, "Ghost", 1.00), stock.ErrProductNotFound)
}

func TestRemoveProduct(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.RemoveProduct(2))
	_, err := f.engine.Product(2)
	require.ErrorIs(t, err, stock.ErrProductNotFound)
	require.Equal(t, []int{2}, f.mirror.deletes)

	require.ErrorIs(t, f.engine.RemoveProduct(2), stock.ErrProductNotFound)
}

func TestRemoveProductRefusedWhileReserved(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.AddUnit(1))
	require.ErrorIs(t, f.engine.RemoveProduct(1), ErrProductReserved)

	// The record survives and the line can still be released.
	require.NoError(t, f.engine.RemoveLine(1))
	require.Equal(t, 5, f.quantity(t, 1))
	require.NoError(t, f.engine.RemoveProduct(1))
}

func TestRefillOnlyWhenEmpty(t *testing.T) {
	f := newFixture(t)

	// Product 1 still has stock.
	_, err := f.engine.Refill(1)
	require.ErrorIs(t, err, ErrNotOutOfStock)
	require.Equal(t, 5, f.quantity(t, 1))

	// Product 3 is at zero and refills to its baseline quantity.
	qty, err := f.engine.Refill(3)
	require.NoError(t, err)
	require.Equal(t, 20, qty)
	require.Equal(t, 20, f.quantity(t, 3))
}

func TestRefillWithoutBaselineRecord(t *testing.T) {
	f := newFixture(t)

	// A freshly added product has no baseline entry.
	p, err := f.engine.AddProduct("Chewits", 0.60, 0)
	require.NoError(t, err)

	_, err = f.engine.Refill(p.ID)
	require.ErrorIs(t, err, ErrNoBaseline)
}

func TestMirrorFailureDoesNotFailAdminOps(t *testing.T) {
	f := newFixture(t)
	f.mirror.fail = true

	_, err := f.engine.AddProduct("Water", 1.00, 12)
	require.NoError(t, err)
	require.NoError(t, f.engine.EditProduct(1, "Cola Zero", 1.60))
}
