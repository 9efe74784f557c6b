// internal/stock/file.go
package stock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"vendingbackend/internal/logger"
)

// Inventory files hold one record per line:
//
//	ID: 1, Name: Cola, Price: 1.50, Quantity: 5
//
// The same format is shared by the working inventory file and the baseline
// (fresh stock) file used for refills.

var ErrCorruptInventory = errors.New("corrupt inventory record")

// LoadFile reads an inventory file into a fresh Ledger. A missing file is not
// an error: the terminal starts with an empty inventory and logs a warning.
// A malformed line is corruption and surfaces loudly instead of being skipped.
func LoadFile(path string) (*Ledger, error) {
	l := NewLedger()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.LogWarn("Inventory file %s not found. Starting with empty inventory.", path)
			return l, nil
		}
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, lineNo, err)
		}
		l.products[p.ID] = p
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	if l.Len() == 0 {
		logger.LogWarn("Inventory file %s is empty. Starting with an empty inventory.", path)
	}
	return l, nil
}

// SaveFile writes the ledger back out, one record per line in id order.
func SaveFile(l *Ledger, path string) error {
	var b strings.Builder
	for _, p := range l.Products() {
		fmt.Fprintf(&b, "ID: %d, Name: %s, Price: %.2f, Quantity: %d\n",
			p.ID, p.Name, p.Price, p.Quantity)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0664); err != nil {
		return fmt.Errorf("failed to save inventory file: %w", err)
	}
	return nil
}

func parseLine(line string) (Product, error) {
	parts := strings.Split(line, ", ")
	if len(parts) != 4 {
		return Product{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrCorruptInventory, len(parts))
	}

	fields := make(map[string]string, 4)
	for _, part := range parts {
		key, value, ok := strings.Cut(part, ": ")
		if !ok {
			return Product{}, fmt.Errorf("%w: malformed field %q", ErrCorruptInventory, part)
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	id, err := strconv.Atoi(fields["ID"])
	if err != nil {
		return Product{}, fmt.Errorf("%w: bad ID %q", ErrCorruptInventory, fields["ID"])
	}
	price, err := strconv.ParseFloat(strings.TrimPrefix(fields["Price"], "£"), 64)
	if err != nil || price < 0 {
		return Product{}, fmt.Errorf("%w: bad Price %q", ErrCorruptInventory, fields["Price"])
	}
	qty, err := strconv.Atoi(fields["Quantity"])
	if err != nil || qty < 0 {
		return Product{}, fmt.Errorf("%w: bad Quantity %q", ErrCorruptInventory, fields["Quantity"])
	}

	return Product{ID: id, Name: fields["Name"], Price: price, Quantity: qty}, nil
}
