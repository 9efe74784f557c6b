// test_helpers.go - shared wiring for full-terminal integration tests
package testing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vendingbackend/internal/command"
	"vendingbackend/internal/data"
	"vendingbackend/internal/engine"
	"vendingbackend/internal/ledger"
	"vendingbackend/internal/security"
	"vendingbackend/internal/stock"
)

// TestSuite assembles a complete terminal over temp files: inventory and
// baseline flat files, the transactions audit file, a sqlite mirror and a
// live command channel on a loopback port.
type TestSuite struct {
	Dir              string
	InventoryPath    string
	BaselinePath     string
	TransactionsPath string

	Engine   *engine.Engine
	Ledger   *ledger.Ledger
	Store    *data.Store
	Notifier *command.Notifier
	Gate     *security.Gate
}

const testInventory = `ID: 1, Name: Cola, Price: 1.50, Quantity: 5
ID: 2, Name: Crisps, Price: 0.80, Quantity: 3
ID: 3, Name: Gum, Price: 0.50, Quantity: 0
`

const testBaseline = `ID: 1, Name: Cola, Price: 1.50, Quantity: 10
ID: 2, Name: Crisps, Price: 0.80, Quantity: 12
ID: 3, Name: Gum, Price: 0.50, Quantity: 20
`

// NewTestSuite builds and starts the terminal. Everything is torn down via
// t.Cleanup in reverse order.
func NewTestSuite(t *testing.T) *TestSuite {
	t.Helper()
	dir := t.TempDir()

	s := &TestSuite{
		Dir:              dir,
		InventoryPath:    filepath.Join(dir, "inventory.txt"),
		BaselinePath:     filepath.Join(dir, "fresh_inventory.txt"),
		TransactionsPath: filepath.Join(dir, "transactions.txt"),
	}

	if err := os.WriteFile(s.InventoryPath, []byte(testInventory), 0664); err != nil {
		t.Fatalf("Failed to write test inventory: %v", err)
	}
	if err := os.WriteFile(s.BaselinePath, []byte(testBaseline), 0664); err != nil {
		t.Fatalf("Failed to write test baseline: %v", err)
	}

	stockLedger, err := stock.LoadFile(s.InventoryPath)
	if err != nil {
		t.Fatalf("Failed to load test inventory: %v", err)
	}
	baseline, err := stock.LoadFile(s.BaselinePath)
	if err != nil {
		t.Fatalf("Failed to load test baseline: %v", err)
	}

	s.Ledger, err = ledger.Open(s.TransactionsPath)
	if err != nil {
		t.Fatalf("Failed to open test ledger: %v", err)
	}

	s.Store, err = data.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Store.Close() })

	ids, err := s.Store.TransactionIDs()
	if err != nil {
		t.Fatalf("Failed to read mirror transaction ids: %v", err)
	}
	s.Ledger.Seed(ids)

	if err := s.Store.SyncProducts(stockLedger.Products()); err != nil {
		t.Fatalf("Failed to sync products: %v", err)
	}

	s.Notifier = command.NewNotifier("127.0.0.1:0", 8)
	if err := s.Notifier.Start(); err != nil {
		t.Fatalf("Failed to start command channel: %v", err)
	}
	t.Cleanup(func() { s.Notifier.Close() })

	s.Engine = engine.New(engine.Options{
		Stock:         stockLedger,
		Baseline:      baseline,
		Ledger:        s.Ledger,
		Mirror:        s.Store,
		Notifier:      s.Notifier,
		InventoryPath: s.InventoryPath,
	})
	s.Gate = security.NewGate("admin", "password")

	return s
}

// AttachObserver connects an observer, starts its loop and returns it with a
// channel that yields the loop's result.
func (s *TestSuite) AttachObserver(t *testing.T, sessionID string) (*command.Observer, <-chan error) {
	t.Helper()

	obs, err := command.Connect(s.Notifier.Addr(), sessionID)
	if err != nil {
		t.Fatalf("Failed to connect observer: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- obs.Run() }()

	// Tokens sent before the session attaches are dropped; wait for the
	// handshake to complete before driving operations.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Notifier.Attached() {
			return obs, done
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Observer session never attached")
	return nil, nil
}

// WaitActivity polls until the observer has recorded at least n commands.
func WaitActivity(t *testing.T, obs *command.Observer, n int) []command.ActivityRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if activity := obs.Activity(); len(activity) >= n {
			return activity
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Observer recorded %d command(s), want at least %d", len(obs.Activity()), n)
	return nil
}
