package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrei-cloud/plughub/internal/cli"
	"github.com/andrei-cloud/plughub/internal/config"
	"github.com/andrei-cloud/plughub/internal/logging"
	"github.com/andrei-cloud/plughub/internal/plugins"
	"github.com/andrei-cloud/plughub/internal/version"
)

// listCmd represents the list command.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered plugins",
	Long:  `Run one discovery and load cycle and list every plugin with its outcome.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Disable logging so the table stays clean.
		logging.Disable()

		mgr, err := inspectionManager(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = mgr.Close() }()

		if err := mgr.LoadAll(); err != nil {
			return fmt.Errorf("failed to load plugins: %w", err)
		}

		return cli.WriteEntriesTable(cmd.OutOrStdout(), mgr.Entries())
	},
}

// inspectionManager builds a plugin manager from configuration for one-shot
// CLI use.
func inspectionManager(cmd *cobra.Command) (*plugins.Manager, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}
	cfg := config.Get()

	hostVersion := cfg.Host.Version
	if hostVersion == "" {
		hostVersion = version.Version
	}

	cachePath := ""
	if cfg.Plugin.Cache {
		cachePath = plugins.DefaultCachePath()
	}

	mgr, err := plugins.NewManager(cmd.Context(), plugins.Options{
		SearchPaths: cfg.SearchPaths(),
		Allow:       cfg.AllowList(),
		Deny:        cfg.DenyList(),
		CachePath:   cachePath,
		HostVersion: hostVersion,
		Config:      config.GetViper(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize plugin manager: %w", err)
	}

	return mgr, nil
}

func init() {
	pluginCmd.AddCommand(listCmd)
}
