// internal/data/data.go
package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"vendingbackend/internal/ledger"
	"vendingbackend/internal/logger"
	"vendingbackend/internal/stock"
)

const (
	maxOpenConns = 1 // single terminal, single writer
	queryTimeout = time.Second * 30
)

const schema = `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT NOT NULL,
		product_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		price REAL NOT NULL,
		quantity INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_id ON transactions(transaction_id);`

// Store is the relational mirror of the stock ledger and transaction history.
// The flat files remain the human-readable artifacts; the store is the
// queryable one. Both are written inside the same critical section so they
// never disagree about a committed transaction.
type Store struct {
	db *sql.DB
}

// Open connects to the sqlite database, applies pragmas and creates tables.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			logger.LogWarn("Failed to execute %s: %v", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.LogInfo("Database ready at %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SyncProducts replaces the products table with the current ledger contents.
func (s *Store) SyncProducts(products []stock.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin product sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}
	for _, p := range products {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO products (id, name, price, quantity) VALUES (?, ?, ?, ?)`,
			p.ID, p.Name, p.Price, p.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert product %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertProduct mirrors a single product record.
func (s *Store) UpsertProduct(p stock.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, quantity) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, price=excluded.price, quantity=excluded.quantity`,
		p.ID, p.Name, p.Price, p.Quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
	}
	return nil
}

// DeleteProduct removes a product row from the mirror.
func (s *Store) DeleteProduct(id int) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return nil
}

// InsertTransaction writes one row per cart line for a committed transaction.
func (s *Store) InsertTransaction(t ledger.Transaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction insert: %w", err)
	}
	defer tx.Rollback()

	for _, line := range t.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (transaction_id, product_id, name, price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID, line.ProductID, line.Name, line.UnitPrice, line.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert transaction line: %w", err)
		}
	}
	return tx.Commit()
}

// TransactionIDs returns the distinct transaction ids present in the mirror.
// Used at startup to cross-check audit-file recovery.
func (s *Store) TransactionIDs() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT transaction_id FROM transactions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TransactionLines reads back the stored lines for one transaction id.
func (s *Store) TransactionLines(id string) ([]ledger.Line, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity FROM transactions
		WHERE transaction_id = ? ORDER BY product_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction %s: %w", id, err)
	}
	defer rows.Close()

	var lines []ledger.Line
	for rows.Next() {
		var l ledger.Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan transaction line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Products reads the mirrored product table ordered by id.
func (s *Store) Products() ([]stock.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price, quantity FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []stock.Product
	for rows.Next() {
		var p stock.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
