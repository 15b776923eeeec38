package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muenster-imaging/tabblesync/cmd/tabblesync/commands"
	"github.com/muenster-imaging/tabblesync/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tabblesync",
	Short: "Synchronize Tabbles tags into OMERO annotations",
	Long: `tabblesync - Synchronize Tabbles tags into OMERO annotations

Reads the tag hierarchy Tabbles keeps for each imported file and mirrors
it onto the matching OMERO images as tags and key/value map annotations.

Available commands:
  run     - Annotate a Project, Dataset or list of Images
  config  - Show the effective configuration
  version - Show version information

Examples:
  tabblesync run --type Dataset --ids 5,6        # Annotate two datasets
  tabblesync run --type Image --ids 101 --policy overwrite
  tabblesync config show                         # Show current configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize global logger before any command runs
		jsonOutput, _ := cmd.Flags().GetBool("json")
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Log as JSON lines instead of human-readable output")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
