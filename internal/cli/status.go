package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/markerdocs/internal/kb"
	"github.com/raphaelgruber/markerdocs/internal/source"
)

var (
	statusSource    string
	statusOutputDir string
	statusPending   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how much of the knowledge base is built",
	Long: `Status reads the marker list, checks which output files already exist
non-empty, and prints done/pending counts. Nothing is generated and no
API access is needed.

Examples:
  markerdocs status
  markerdocs status --pending`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSource, "csv", "", "marker list path, .csv or .xlsx (default marker.csv)")
	statusCmd.Flags().StringVarP(&statusOutputDir, "output-dir", "o", "", "output directory (default docs/assets)")
	statusCmd.Flags().BoolVar(&statusPending, "pending", false, "list pending markers")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("csv") {
		statusSource = cfg.SourcePath
	}
	if !cmd.Flags().Changed("output-dir") {
		statusOutputDir = cfg.OutputDir
	}

	markers, err := source.ReadMarkers(statusSource, 1)
	if err != nil {
		return fmt.Errorf("read markers: %w", err)
	}

	pending, skipped := kb.Partition(markers, statusOutputDir)

	fmt.Printf("Markers: %d\n", len(markers))
	fmt.Printf("Done:    %d\n", len(skipped))
	fmt.Printf("Pending: %d\n", len(pending))

	if statusPending {
		for _, m := range pending {
			fmt.Printf("  %s\n", m)
		}
	}

	return nil
}
