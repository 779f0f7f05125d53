package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/plughub/internal/cli"
	"github.com/andrei-cloud/plughub/internal/logging"
)

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status NAME",
	Short: "Show one plugin's registry record",
	Long:  `Run one discovery and load cycle and print the full registry record of a single plugin.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Disable()

		mgr, err := inspectionManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Close() }()

		if err := mgr.LoadAll(); err != nil {
			return fmt.Errorf("failed to load plugins: %w", err)
		}

		entry, ok := mgr.Entry(args[0])
		if !ok {
			return fmt.Errorf("plugin %q not found in any search path", args[0])
		}

		return cli.WriteEntryDetail(cmd.OutOrStdout(), entry)
	},
}

func init() {
	pluginCmd.AddCommand(statusCmd)
}
