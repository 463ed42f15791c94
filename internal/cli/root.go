// Package cli provides the command-line interface for markerdocs.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/markerdocs/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	cfgFile string

	// Global config, loaded before every command.
	cfg config.Config
)

// defaultConfigFile is picked up from the working directory when
// --config is not given.
const defaultConfigFile = "markerdocs.yaml"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "markerdocs",
	Short: "Biomarker knowledge base builder",
	Long: `Markerdocs builds a markdown knowledge base for health check
biomarkers. It reads the marker list from a CSV or XLSX file, asks an
LLM for an explainer document per marker (meaning, common abnormal
findings, probable causes, recommended follow-up) and writes each
document to {output}/{category}/{index}|{name_en}|{name_cn}.md.

Runs are resumable: markers whose output file already exists non-empty
are skipped, so an interrupted run can simply be restarted.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		path := cfgFile
		if path == "" {
			path = defaultConfigFile
		} else if _, err := os.Stat(path); err != nil {
			// An explicitly named config file must exist.
			return fmt.Errorf("config file: %w", err)
		}

		if err := cfg.ApplyFile(path); err != nil {
			return err
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+defaultConfigFile+")")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statusCmd)
}
