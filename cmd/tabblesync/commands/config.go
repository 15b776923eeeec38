package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muenster-imaging/tabblesync/config"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tabblesync configuration",
	Long: `Display and validate the tabblesync configuration.

Configuration sources (in order of precedence):
1. Environment variables (TABBLESYNC_* prefix)
2. Project config (./tabblesync.toml)
3. System config (/etc/tabblesync/tabblesync.toml)
4. Default values

Credentials (tabbles.dsn, omero.username, omero.password) are read from
the environment only.

Examples:
  tabblesync config show       # Show current configuration
  tabblesync config validate   # Validate current configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration from all sources, credentials redacted",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current tabblesync configuration is usable for a run",
	RunE:  runConfigValidate,
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Never echo credentials, not even partially.
	redacted := *cfg
	if redacted.Tabbles.DSN != "" {
		redacted.Tabbles.DSN = "<set>"
	}
	if redacted.OMERO.Password != "" {
		redacted.OMERO.Password = "<set>"
	}

	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Println("Configuration is valid")
	return nil
}
