// internal/cli/root.go
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the vending terminal.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendingbackend",
		Short: "Vending machine terminal backend",
		Long: "A single-location vending terminal: inventory, cart and checkout engine\n" +
			"with a command channel notifying one connected observer of state transitions.",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewObserveCommand())

	return cmd
}
