// internal/cli/serve.go
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vendingbackend/internal/command"
	"vendingbackend/internal/config"
	"vendingbackend/internal/data"
	"vendingbackend/internal/engine"
	"vendingbackend/internal/ledger"
	"vendingbackend/internal/logger"
	"vendingbackend/internal/security"
	"vendingbackend/internal/stock"
)

// NewServeCommand runs the terminal: engine, command channel and the
// operator console on stdin.
func NewServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vending terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			cfg := config.Load()
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "command channel listen address (overrides COMMAND_LISTEN_ADDR)")
	return cmd
}

func runServe(cfg config.Config) error {
	if err := logger.SetupLogger(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	stockLedger, err := stock.LoadFile(cfg.InventoryFile)
	if err != nil {
		// Malformed inventory on replay is corruption, not a soft start.
		logger.LogFatal("Failed to load inventory: %v", err)
	}
	baseline, err := stock.LoadFile(cfg.BaselineFile)
	if err != nil {
		logger.LogFatal("Failed to load baseline inventory: %v", err)
	}

	txLedger, err := ledger.Open(cfg.TransactionsFile)
	if err != nil {
		logger.LogFatal("Failed to open transaction ledger: %v", err)
	}

	store, err := data.Open(cfg.DatabasePath)
	if err != nil {
		logger.LogFatal("Failed to open database: %v", err)
	}
	defer store.Close()

	// Uniqueness must hold against both sinks, whichever survived longer.
	ids, err := store.TransactionIDs()
	if err != nil {
		logger.LogFatal("Failed to read transaction ids from database: %v", err)
	}
	txLedger.Seed(ids)

	if err := store.SyncProducts(stockLedger.Products()); err != nil {
		logger.LogWarn("Failed to sync products into database: %v", err)
	}

	notifier := command.NewNotifier(cfg.ListenAddr, cfg.CommandQueueSize)
	if err := notifier.Start(); err != nil {
		logger.LogFatal("Failed to start command channel: %v", err)
	}
	defer notifier.Close()

	eng := engine.New(engine.Options{
		Stock:         stockLedger,
		Baseline:      baseline,
		Ledger:        txLedger,
		Mirror:        store,
		Notifier:      notifier,
		InventoryPath: cfg.InventoryFile,
	})

	gate := security.NewGate(cfg.AdminUsername, cfg.AdminPassword)

	console := NewConsole(eng, gate, os.Stdin, os.Stdout)
	console.Run()

	shutdownTerminal(eng)
	notifier.Drain(2 * time.Second)
	logger.LogInfo("Terminal shut down")
	return nil
}

// shutdownTerminal ends the session. An abandoned cart still holds live
// reservations and the inventory file carries their deductions, so the cart
// is released first; closing the terminal must never destroy stock.
func shutdownTerminal(eng *engine.Engine) {
	if err := eng.ClearCart(); err != nil {
		logger.LogError("Failed to release abandoned cart: %v", err)
	}
	eng.Shutdown()
}
