// internal/payment/payment.go
package payment

import (
	"fmt"
	"regexp"
	"strings"
)

// Card types accepted by the terminal.
const (
	CardVisa       = "Visa"
	CardMastercard = "Mastercard"
	CardAmEx       = "American Express"
)

// Details is the payment descriptor entered at checkout. The card is
// validated for shape only and never transmitted anywhere.
type Details struct {
	CardType   string
	CardNumber string
	Expiry     string // MM/YY
	CVV        string
}

// Summary is what survives into the transaction record.
type Summary struct {
	CardType     string
	MaskedNumber string
}

// ValidationError reports a user-correctable checkout rejection. Checkout is
// all-or-nothing: any ValidationError means no state was touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payment validation failed: %s", e.Reason)
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

// Validate runs the shape checks in a fixed order, stopping at the first
// failure. The cart-non-empty check happens earlier, in the engine.
func Validate(d Details) error {
	switch d.CardType {
	case CardVisa, CardMastercard, CardAmEx:
	default:
		return &ValidationError{Reason: "select exactly one card type"}
	}

	if d.CardNumber == "" || d.Expiry == "" || d.CVV == "" {
		return &ValidationError{Reason: "all payment fields are required"}
	}

	if len(d.CardNumber) < 16 || len(d.CardNumber) > 17 {
		return &ValidationError{Reason: "card number must be 16 or 17 digits"}
	}

	if len(d.CVV) > 4 {
		return &ValidationError{Reason: "cvv must be at most 4 digits"}
	}

	// Enforced independently of the length checks above.
	if !digitsOnly(d.CardNumber) || !digitsOnly(d.CVV) {
		return &ValidationError{Reason: "card number and cvv must contain only digits"}
	}

	if !expiryPattern.MatchString(d.Expiry) {
		return &ValidationError{Reason: "expiry date must be 'MM/YY'"}
	}

	return nil
}

// Summarize masks the card number down to its last four digits.
func Summarize(d Details) Summary {
	return Summary{
		CardType:     d.CardType,
		MaskedNumber: MaskNumber(d.CardNumber),
	}
}

// MaskNumber replaces all but the last four digits with asterisks.
func MaskNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
