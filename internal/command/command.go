// internal/command/command.go
package command

import "strings"

// Token is one command emitted by the terminal as a user-visible action
// completes. The wire format is the token itself, one per line, UTF-8.
type Token string

const (
	View          Token = "VIEW"
	MainMenu      Token = "MAIN MENU"
	Add           Token = "ADD"
	Remove        Token = "REMOVE"
	Cart          Token = "CART"
	Checkout      Token = "CHECKOUT"
	OrderComplete Token = "ORDER COMPLETE"
	Exit          Token = "EXIT"
)

// acks maps each token to the fixed acknowledgment the observer returns.
// Matching is case-insensitive on the receiving side.
var acks = map[Token]string{
	View:          "Inventory Page",
	MainMenu:      "Main Menu Page",
	Add:           "Product Added to Cart",
	Remove:        "Product Removed from Cart",
	Cart:          "Cart Page",
	Checkout:      "Checkout Page",
	OrderComplete: "Order Completed and Saved",
	Exit:          "Goodbye!",
}

// UnknownAck is returned for any token outside the table.
const UnknownAck = "Unknown command"

// AckFor returns the acknowledgment string for a received command line.
func AckFor(raw string) string {
	token := Token(strings.ToUpper(strings.TrimSpace(raw)))
	if ack, ok := acks[token]; ok {
		return ack
	}
	return UnknownAck
}
