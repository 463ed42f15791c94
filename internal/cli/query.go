package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/markerdocs/internal/kb"
	"github.com/raphaelgruber/markerdocs/internal/llm"
	"github.com/raphaelgruber/markerdocs/internal/models"
)

var (
	queryCategory  string
	queryIndex     int
	queryOutputDir string
)

var queryCmd = &cobra.Command{
	Use:   "query <name_en> [name_cn]",
	Short: "Generate the document for a single marker",
	Long: `Query generates the explainer document for one marker, echoing the
response stream to stdout while writing it to the usual output path.
Useful for spot-checking prompt output or regenerating a single file
(delete the old file first, the resume check is not applied here).

If name_cn is omitted the English name is used for both.

Examples:
  markerdocs query Glucose 血糖 --category Metabolic --index 3
  markerdocs query "尿白蛋白/肌酐比值"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryCategory, "category", "Uncategorized", "category directory for the output file")
	queryCmd.Flags().IntVar(&queryIndex, "index", 1, "marker index used in the filename")
	queryCmd.Flags().StringVarP(&queryOutputDir, "output-dir", "o", "", "output directory (default docs/assets)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	nameEN := args[0]
	nameCN := nameEN
	if len(args) == 2 {
		nameCN = args[1]
	}
	if !cmd.Flags().Changed("output-dir") {
		queryOutputDir = cfg.OutputDir
	}

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	m := models.Marker{
		Index:    queryIndex,
		NameEN:   nameEN,
		NameCN:   nameCN,
		Category: queryCategory,
	}

	fetcher := kb.NewFetcher(model, queryOutputDir, nil, nil)
	fetcher.OnFragment = func(token string) {
		fmt.Print(token)
	}

	res := fetcher.Fetch(ctx, m)
	fmt.Println()
	if !res.Success {
		return fmt.Errorf("query %s: %s", m, res.Err)
	}

	fmt.Printf("Saved to %s (%d bytes)\n", res.Path, res.Bytes)
	return nil
}
