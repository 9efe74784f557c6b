// internal/cli/observe.go
package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vendingbackend/internal/command"
	"vendingbackend/internal/config"
	"vendingbackend/internal/logger"
)

// NewObserveCommand connects to a running terminal as the observer and
// relays acknowledgments until the terminal exits.
func NewObserveCommand() *cobra.Command {
	var (
		addr      string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Attach to a terminal's command channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			cfg := config.Load()
			if addr == "" {
				addr = cfg.ListenAddr
			}
			if sessionID == "" {
				sessionID = "observer-" + uuid.NewString()[:8]
			}
			return runObserve(cfg, addr, sessionID)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "terminal address (defaults to COMMAND_LISTEN_ADDR)")
	cmd.Flags().StringVar(&sessionID, "id", "", "session identifier sent in the handshake")
	return cmd
}

func runObserve(cfg config.Config, addr, sessionID string) error {
	if err := logger.SetupLogger(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	obs, err := command.Connect(addr, sessionID)
	if err != nil {
		return err
	}

	err = obs.Run()
	obs.LogActivity()
	return err
}
