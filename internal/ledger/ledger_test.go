package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vendingbackend/internal/payment"
)

func sampleTransaction(id string) Transaction {
	return Transaction{
		ID: id,
		Lines: []Line{
			{ProductID: 1, Name: "Cola", UnitPrice: 1.50, Quantity: 2},
			{ProductID: 2, Name: "Crisps", UnitPrice: 0.80, Quantity: 1},
		},
		Total: 3.80,
		Payment: payment.Summary{
			CardType:     payment.CardVisa,
			MaskedNumber: "************1111",
		},
	}
}

func TestOpenMissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "transactions.txt"))
	require.NoError(t, err)
	require.Equal(t, 0, l.Count())
}

func TestAppendRegistersID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")
	l, err := Open(path)
	require.NoError(t, err)

	tx := sampleTransaction("abc-123")
	require.NoError(t, l.Append(tx))
	require.True(t, l.RecordsWithID("abc-123"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	require.Contains(t, text, "Order Receipt:")
	require.Contains(t, text, "ID: 1, Name: Cola, Price: 1.50, Quantity: 2")
	require.Contains(t, text, "Transaction ID: abc-123")
	require.Contains(t, text, "Total cost: £3.80")
}

func TestRecoveryAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(sampleTransaction("first-id")))
	require.NoError(t, l.Append(sampleTransaction("second-id")))

	// A fresh Ledger over the same file must know both ids.
	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Count())
	require.True(t, reopened.RecordsWithID("first-id"))
	require.True(t, reopened.RecordsWithID("second-id"))
}

func TestSeedFromMirror(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "transactions.txt"))
	require.NoError(t, err)

	l.Seed([]string{"mirror-only-id"})
	require.True(t, l.RecordsWithID("mirror-only-id"))

	// NewID must avoid seeded ids too.
	calls := 0
	l.SetGenerator(func() string {
		calls++
		if calls == 1 {
			return "mirror-only-id"
		}
		return "fresh-id"
	})
	id, err := l.NewID()
	require.NoError(t, err)
	require.Equal(t, "fresh-id", id)
}

func TestNewIDRetriesOnCollision(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "transactions.txt"))
	require.NoError(t, err)
	require.NoError(t, l.Append(sampleTransaction("taken")))

	attempts := []string{"taken", "taken", "unique"}
	i := 0
	l.SetGenerator(func() string {
		id := attempts[i%len(attempts)]
		i++
		return id
	})

	id, err := l.NewID()
	require.NoError(t, err)
	require.Equal(t, "unique", id)
}

func TestNewIDExhaustion(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "transactions.txt"))
	require.NoError(t, err)
	require.NoError(t, l.Append(sampleTransaction("only-id")))

	l.SetGenerator(func() string { return "only-id" })

	_, err = l.NewID()
	require.True(t, errors.Is(err, ErrIDSpaceExhausted))
}

func TestOpenMalformedIDLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")
	require.NoError(t, os.WriteFile(path, []byte("Transaction ID:\n"), 0664))

	_, err := Open(path)
	require.Error(t, err)
}

func TestOpenIgnoresReceiptNoise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")
	content := strings.Join([]string{
		"",
		"Order Receipt:",
		"ID: 1, Name: Cola, Price: 1.50, Quantity: 2",
		"Transaction ID: real-id",
		"Total cost: £3.00",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0664))

	l, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 1, l.Count())
	require.True(t, l.RecordsWithID("real-id"))
}

func TestAppendPaymentRecordMasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.txt")
	l, err := Open(path)
	require.NoError(t, err)

	tx := sampleTransaction("masked-id")
	require.NoError(t, l.AppendPaymentRecord(tx))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	require.Contains(t, text, "Payment Type: Visa")
	require.Contains(t, text, "Card Number: ************1111")
	require.Contains(t, text, "Expiry Date: **/**")
	require.Contains(t, text, "CVV: ***")
	require.Contains(t, text, fmt.Sprintf("Cart Total: £%.2f", 3.80))
	require.Contains(t, text, "  - ID: 1, Name: Cola, Quantity: 2, Total: £3.00")
	require.NotContains(t, text, "4111111111111111")
}
