// internal/ledger/ledger.go
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"vendingbackend/internal/logger"
	"vendingbackend/internal/payment"
)

// ErrIDSpaceExhausted is returned when the generator cannot produce a fresh
// transaction id within the retry bound. With uuids this never happens in
// practice; tests constrain the generator to force it.
var ErrIDSpaceExhausted = errors.New("could not generate a unique transaction id")

const maxIDRetries = 64

const idPrefix = "Transaction ID:"

// Line is one committed cart line.
type Line struct {
	ProductID int
	Name      string
	UnitPrice float64
	Quantity  int
}

// Transaction is an immutable committed order. Built once at checkout commit
// and never modified afterwards.
type Transaction struct {
	ID      string
	Lines   []Line
	Total   float64
	Payment payment.Summary
}

// Ledger is the append-only transaction history. It owns the human-readable
// audit file and the set of every transaction id ever observed, including ids
// recovered from the file at startup, so uniqueness holds across restarts.
type Ledger struct {
	path     string
	known    map[string]struct{}
	generate func() string
}

// Open scans the audit file for previously recorded transaction ids and seeds
// the known-id set. A missing file is recovered by treating history as empty.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path:     path,
		known:    make(map[string]struct{}),
		generate: uuid.NewString,
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.LogWarn("Transactions file %s not found. It will be created.", path)
			return l, nil
		}
		return nil, fmt.Errorf("failed to open transactions file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, idPrefix) {
			continue
		}
		id := strings.TrimSpace(strings.TrimPrefix(line, idPrefix))
		if id == "" {
			return nil, fmt.Errorf("%s: malformed transaction id line %q", path, line)
		}
		l.known[id] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan transactions file: %w", err)
	}

	logger.LogInfo("Recovered %d transaction id(s) from %s", len(l.known), path)
	return l, nil
}

// SetGenerator swaps the id source. Tests use this to force collisions.
func (l *Ledger) SetGenerator(gen func() string) {
	l.generate = gen
}

// Seed marks ids as already observed (e.g. ids read from the relational
// mirror at startup).
func (l *Ledger) Seed(ids []string) {
	for _, id := range ids {
		l.known[id] = struct{}{}
	}
}

// RecordsWithID reports whether an id has ever been observed.
func (l *Ledger) RecordsWithID(id string) bool {
	_, ok := l.known[id]
	return ok
}

// Count returns the number of known transaction ids.
func (l *Ledger) Count() int {
	return len(l.known)
}

// NewID produces a transaction id that collides with nothing previously
// observed, regenerating on collision up to a fixed bound.
func (l *Ledger) NewID() (string, error) {
	for i := 0; i < maxIDRetries; i++ {
		id := l.generate()
		if !l.RecordsWithID(id) {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}

// Append writes the order receipt block to the audit file and registers the
// transaction id. The caller holds the engine lock; the mirror insert and the
// inventory finalize happen in the same critical section.
func (l *Ledger) Append(t Transaction) error {
	var b strings.Builder
	b.WriteString("\nOrder Receipt:\n")
	for _, line := range t.Lines {
		fmt.Fprintf(&b, "ID: %d, Name: %s, Price: %.2f, Quantity: %d\n",
			line.ProductID, line.Name, line.UnitPrice, line.Quantity)
	}
	fmt.Fprintf(&b, "%s %s\n", idPrefix, t.ID)
	fmt.Fprintf(&b, "Total cost: £%.2f\n", t.Total)

	if err := l.appendText(b.String()); err != nil {
		return err
	}
	l.known[t.ID] = struct{}{}
	return nil
}

// AppendPaymentRecord writes the itemized payment audit block. Card details
// are shape-validated only and stored masked; the CVV is never persisted.
func (l *Ledger) AppendPaymentRecord(t Transaction) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n%s %s\n", idPrefix, t.ID)
	fmt.Fprintf(&b, "Payment Type: %s\n", t.Payment.CardType)
	fmt.Fprintf(&b, "Card Number: %s\n", t.Payment.MaskedNumber)
	fmt.Fprintf(&b, "Expiry Date: %s\n", "**/**")
	fmt.Fprintf(&b, "CVV: %s\n", "***")
	fmt.Fprintf(&b, "Cart Total: £%.2f\n", t.Total)
	b.WriteString("Cart Items:\n")
	for _, line := range t.Lines {
		fmt.Fprintf(&b, "  - ID: %d, Name: %s, Quantity: %d, Total: £%.2f\n",
			line.ProductID, line.Name, line.Quantity, line.UnitPrice*float64(line.Quantity))
	}
	b.WriteString("\n")

	return l.appendText(b.String())
}

func (l *Ledger) appendText(text string) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0664)
	if err != nil {
		return fmt.Errorf("failed to open transactions file for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("failed to append to transactions file: %w", err)
	}
	return nil
}
