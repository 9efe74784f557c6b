// internal/cli/console.go
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vendingbackend/internal/engine"
	"vendingbackend/internal/payment"
	"vendingbackend/internal/security"
)

// Console is the operator-facing text UI driving the engine. It stands in
// for the terminal's screens: each page change emits the matching command
// token through the engine.
type Console struct {
	engine  *engine.Engine
	gate    *security.Gate
	scanner *bufio.Scanner
	out     io.Writer
}

func NewConsole(eng *engine.Engine, gate *security.Gate, in io.Reader, out io.Writer) *Console {
	return &Console{
		engine:  eng,
		gate:    gate,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Run drives the main menu until "exit" or EOF.
func (c *Console) Run() {
	c.printf("Welcome to the Vending Machine!\n")
	for {
		c.printf("\n[main menu] view | cart | admin | exit\n")
		line, ok := c.readLine("> ")
		if !ok {
			return
		}
		switch strings.ToLower(line) {
		case "view":
			c.inventoryPage()
		case "cart":
			c.cartPage()
		case "admin":
			c.adminPage()
		case "exit":
			return
		case "":
		default:
			c.printf("Unknown option %q\n", line)
		}
	}
}

func (c *Console) inventoryPage() {
	for {
		products := c.engine.ViewProducts()
		if len(products) == 0 {
			c.printf("No products available.\n")
		}
		for _, p := range products {
			c.printf("ID: %d, Name: %s, Price: £%.2f, Stock: %d\n", p.ID, p.Name, p.Price, p.Quantity)
		}
		c.printf("[inventory] add <id> | cart | back\n")
		line, ok := c.readLine("> ")
		if !ok {
			return
		}
		fields := strings.Fields(strings.ToLower(line))
		switch {
		case len(fields) == 2 && fields[0] == "add":
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				c.printf("Not a product id: %s\n", fields[1])
				continue
			}
			if err := c.engine.AddUnit(id); err != nil {
				c.printf("Could not add: %v\n", err)
			} else {
				c.printf("Added to cart.\n")
			}
		case len(fields) == 1 && fields[0] == "cart":
			c.cartPage()
			return
		case len(fields) == 1 && fields[0] == "back":
			c.engine.BackToMenu()
			return
		default:
			c.printf("Unknown option %q\n", line)
		}
	}
}

func (c *Console) cartPage() {
	for {
		lines, total := c.engine.ViewCart()
		if len(lines) == 0 {
			c.printf("Your cart is empty!\n")
		}
		for _, l := range lines {
			c.printf("ID: %d, Name: %s, Price: £%.2f, Quantity: %d\n", l.ProductID, l.Name, l.UnitPrice, l.Quantity)
		}
		c.printf("Total: £%.2f\n", total)
		c.printf("[cart] qty <id> <n> | remove <id> | clear | checkout | back\n")
		line, ok := c.readLine("> ")
		if !ok {
			return
		}
		fields := strings.Fields(strings.ToLower(line))
		switch {
		case len(fields) == 3 && fields[0] == "qty":
			id, err1 := strconv.Atoi(fields[1])
			qty, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				c.printf("Usage: qty <id> <n>\n")
				continue
			}
			if err := c.engine.SetQuantity(id, qty); err != nil {
				c.printf("Could not update quantity: %v\n", err)
			}
		case len(fields) == 2 && fields[0] == "remove":
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				c.printf("Not a product id: %s\n", fields[1])
				continue
			}
			if err := c.engine.RemoveLine(id); err != nil {
				c.printf("Could not remove: %v\n", err)
			} else {
				c.printf("Removed from cart.\n")
			}
		case len(fields) == 1 && fields[0] == "clear":
			if err := c.engine.ClearCart(); err != nil {
				c.printf("Could not clear cart: %v\n", err)
			} else {
				c.printf("Cart has been cleared.\n")
			}
		case len(fields) == 1 && fields[0] == "checkout":
			if c.checkoutPage() {
				return
			}
		case len(fields) == 1 && fields[0] == "back":
			c.engine.BackToMenu()
			return
		default:
			c.printf("Unknown option %q\n", line)
		}
	}
}

// checkoutPage collects payment details. Returns true when an order was
// completed and the console should fall back to the main menu.
func (c *Console) checkoutPage() bool {
	if err := c.engine.BeginCheckout(); err != nil {
		c.printf("Cannot check out: %v\n", err)
		return false
	}

	cardType, ok := c.readCardType()
	if !ok {
		return false
	}
	number, ok := c.readLine("Card number: ")
	if !ok {
		return false
	}
	expiry, ok := c.readLine("Expiry date (MM/YY): ")
	if !ok {
		return false
	}
	cvv, ok := c.readLine("CVV: ")
	if !ok {
		return false
	}

	id, err := c.engine.Checkout(payment.Details{
		CardType:   cardType,
		CardNumber: strings.TrimSpace(number),
		Expiry:     strings.TrimSpace(expiry),
		CVV:        strings.TrimSpace(cvv),
	})
	if err != nil {
		c.printf("Payment failed: %v\n", err)
		return false
	}
	c.printf("Payment completed successfully! Transaction ID: %s\n", id)
	return true
}

func (c *Console) readCardType() (string, bool) {
	c.printf("Card type: 1) Visa 2) Mastercard 3) American Express\n")
	line, ok := c.readLine("> ")
	if !ok {
		return "", false
	}
	switch strings.TrimSpace(line) {
	case "1":
		return payment.CardVisa, true
	case "2":
		return payment.CardMastercard, true
	case "3":
		return payment.CardAmEx, true
	default:
		// Let checkout validation produce the structured error.
		return strings.TrimSpace(line), true
	}
}

func (c *Console) adminPage() {
	user, ok := c.readLine("Username: ")
	if !ok {
		return
	}
	pass, ok := c.readLine("Password: ")
	if !ok {
		return
	}
	if !c.gate.Authenticate(strings.TrimSpace(user), strings.TrimSpace(pass)) {
		c.printf("Invalid username or password\n")
		return
	}

	for {
		c.printf("[admin] list | add <name> <price> <qty> | edit <id> <name> <price> | remove <id> | refill <id> | logout\n")
		line, ok := c.readLine("> ")
		if !ok {
			return
		}
		fields := strings.Fields(line)
		switch {
		case len(fields) == 1 && strings.EqualFold(fields[0], "list"):
			for _, p := range c.engine.Products() {
				c.printf("ID: %d, Name: %s, Price: £%.2f, Stock: %d\n", p.ID, p.Name, p.Price, p.Quantity)
			}
		case len(fields) == 4 && strings.EqualFold(fields[0], "add"):
			price, err1 := strconv.ParseFloat(fields[2], 64)
			qty, err2 := strconv.Atoi(fields[3])
			if err1 != nil || err2 != nil {
				c.printf("Usage: add <name> <price> <qty>\n")
				continue
			}
			p, err := c.engine.AddProduct(fields[1], price, qty)
			if err != nil {
				c.printf("Could not add item: %v\n", err)
			} else {
				c.printf("New item added with ID %d\n", p.ID)
			}
		case len(fields) == 4 && strings.EqualFold(fields[0], "edit"):
			id, err1 := strconv.Atoi(fields[1])
			price, err2 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil {
				c.printf("Usage: edit <id> <name> <price>\n")
				continue
			}
			if err := c.engine.EditProduct(id, fields[2], price); err != nil {
				c.printf("Could not edit item: %v\n", err)
			} else {
				c.printf("Item edited successfully!\n")
			}
		case len(fields) == 2 && strings.EqualFold(fields[0], "remove"):
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				c.printf("Not a product id: %s\n", fields[1])
				continue
			}
			confirm, ok := c.readLine("Are you sure you want to remove this item? (y/n): ")
			if !ok || !strings.EqualFold(strings.TrimSpace(confirm), "y") {
				c.printf("Removal cancelled.\n")
				continue
			}
			if err := c.engine.RemoveProduct(id); err != nil {
				c.printf("Could not remove item: %v\n", err)
			} else {
				c.printf("Item removed successfully!\n")
			}
		case len(fields) == 2 && strings.EqualFold(fields[0], "refill"):
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				c.printf("Not a product id: %s\n", fields[1])
				continue
			}
			qty, err := c.engine.Refill(id)
			if err != nil {
				c.printf("Could not refill: %v\n", err)
			} else {
				c.printf("Stock refilled to %d\n", qty)
			}
		case len(fields) == 1 && strings.EqualFold(fields[0], "logout"):
			c.engine.BackToMenu()
			return
		case len(fields) == 0:
		default:
			c.printf("Unknown option %q\n", line)
		}
	}
}

func (c *Console) readLine(prompt string) (string, bool) {
	c.printf("%s", prompt)
	if !c.scanner.Scan() {
		return "", false
	}
	return c.scanner.Text(), true
}

func (c *Console) printf(format string, v ...interface{}) {
	fmt.Fprintf(c.out, format, v...)
}
