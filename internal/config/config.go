// internal/config/config.go
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"vendingbackend/internal/logger"
)

// Config holds every runtime setting for the terminal and the observer.
type Config struct {
	// Command channel
	ListenAddr       string
	CommandQueueSize int

	// Persistence
	DataDirectory    string
	InventoryFile    string
	BaselineFile     string
	TransactionsFile string
	DatabasePath     string

	// Logging
	LogsDirectory string
	LogFileFormat string
	TimeZone      string

	// Admin gate
	AdminUsername string
	AdminPassword string
}

// LoadEnv reads the .env file if present. System environment always wins.
func LoadEnv() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found. Using system environment variables.")
	} else {
		log.Printf("Loaded environment variables from .env file")
	}
}

// Load collects configuration from the environment with defaults.
func Load() Config {
	dataDir := getenv("DATA_DIRECTORY", "./data")

	return Config{
		ListenAddr:       getenv("COMMAND_LISTEN_ADDR", "127.0.0.1:5000"),
		CommandQueueSize: atoienv("COMMAND_QUEUE_SIZE", 32),

		DataDirectory:    dataDir,
		InventoryFile:    getenv("INVENTORY_FILE", filepath.Join(dataDir, "inventory.txt")),
		BaselineFile:     getenv("BASELINE_INVENTORY_FILE", filepath.Join(dataDir, "fresh_inventory.txt")),
		TransactionsFile: getenv("TRANSACTIONS_FILE", filepath.Join(dataDir, "transactions.txt")),
		DatabasePath:     getenv("DATABASE_PATH", filepath.Join(dataDir, "vending_machine.db")),

		LogsDirectory: getenv("LOGS_DIRECTORY", "./logs"),
		LogFileFormat: getenv("LOG_FILE_FORMAT", "terminal_%s.log"),
		TimeZone:      getenv("TIME_ZONE", "Local"),

		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "password"),
	}
}

// LoggerConfig returns a logger.Config populated from this configuration.
func (c Config) LoggerConfig() logger.Config {
	return logger.Config{
		LogsDirectory: c.LogsDirectory,
		LogFileFormat: c.LogFileFormat,
		TimeZone:      c.TimeZone,
	}
}

// EnsureDirectories creates the data and logs directories if missing.
func (c Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDirectory, c.LogsDirectory} {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return err
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.LogWarn("Invalid value for %s: %q, using default %d", key, v, def)
		return def
	}
	return n
}
