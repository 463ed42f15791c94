package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/markerdocs/internal/config"
	"github.com/raphaelgruber/markerdocs/internal/kb"
	"github.com/raphaelgruber/markerdocs/internal/llm"
	"github.com/raphaelgruber/markerdocs/internal/metrics"
	"github.com/raphaelgruber/markerdocs/internal/models"
	"github.com/raphaelgruber/markerdocs/internal/source"
)

var (
	buildSource      string
	buildOutputDir   string
	buildStart       int
	buildLimit       int
	buildConcurrency int
	buildDryRun      bool
	buildPlain       bool
	buildStats       bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate documents for all pending markers",
	Long: `Build reads the marker list, skips markers whose output file already
exists non-empty, and generates a document for each remaining marker
with a fixed-size pool of concurrent workers.

Failures are isolated: one marker failing never aborts the others. A
failed or interrupted marker leaves an absent or partial file and is
retried on the next run (partial-but-non-empty files count as done;
delete them first if they look truncated).

Examples:
  markerdocs build
  markerdocs build --csv marker.csv --output-dir docs/assets
  markerdocs build --start 50 --limit 10
  markerdocs build -c 8 --plain --stats`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildSource, "csv", "", "marker list path, .csv or .xlsx (default marker.csv)")
	buildCmd.Flags().StringVarP(&buildOutputDir, "output-dir", "o", "", "output directory (default docs/assets)")
	buildCmd.Flags().IntVar(&buildStart, "start", 1, "first source row to consider, 1-based")
	buildCmd.Flags().IntVar(&buildLimit, "limit", 0, "max markers to process this run (0 = unlimited)")
	buildCmd.Flags().IntVarP(&buildConcurrency, "concurrency", "c", 0, "concurrent workers (default 4)")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "show what would be generated without calling the API")
	buildCmd.Flags().BoolVar(&buildPlain, "plain", false, "line-by-line output instead of the progress display")
	buildCmd.Flags().BoolVar(&buildStats, "stats", false, "print request statistics after the summary")
}

// applyBuildDefaults fills unset flags from the loaded configuration.
// Flag > config file > environment > built-in default.
func applyBuildDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("csv") {
		buildSource = cfg.SourcePath
	}
	if !cmd.Flags().Changed("output-dir") {
		buildOutputDir = cfg.OutputDir
	}
	if !cmd.Flags().Changed("concurrency") {
		buildConcurrency = cfg.Concurrency
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	applyBuildDefaults(cmd)
	ctx := context.Background()

	logger, cleanup := config.SetupLogger(cfg)
	defer cleanup()
	logger = logger.With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	collector := metrics.NewCollector()

	readStart := time.Now()
	markers, err := source.ReadMarkers(buildSource, buildStart)
	if err != nil {
		return fmt.Errorf("read markers: %w", err)
	}
	collector.RecordTiming(metrics.OpSourceRead, time.Since(readStart))

	fmt.Printf("Read %d markers from %s (starting at row %d)\n", len(markers), buildSource, buildStart)

	pending, skipped := kb.Partition(markers, buildOutputDir)
	fmt.Printf("Already done, skipping: %d\n", len(skipped))
	fmt.Printf("To process: %d\n", len(pending))

	if buildLimit > 0 {
		pending = kb.Limit(pending, buildLimit)
		fmt.Printf("Limited to: %d\n", len(pending))
	}

	if buildDryRun {
		for _, m := range pending {
			fmt.Printf("  would generate %s\n", kb.BuildPath(m.Index, m.NameEN, m.NameCN, m.Category, buildOutputDir))
		}
		return nil
	}

	if len(pending) == 0 {
		fmt.Println("Nothing to do.")
		return nil
	}

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}
	logger.Info("starting build", "model", model.Model(), "pending", len(pending),
		"skipped", len(skipped), "concurrency", buildConcurrency)

	fetcher := kb.NewFetcher(model, buildOutputDir, collector, logger)

	var results []models.FetchResult
	if !buildPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		results = runWithProgress(ctx, fetcher, pending, len(skipped), buildConcurrency)
	} else {
		results = kb.Run(ctx, fetcher, pending, kb.RunOptions{
			Concurrency: buildConcurrency,
			OnResult:    printResultLine,
		})
	}

	summary := kb.Summarize(results)
	fmt.Println()
	fmt.Printf("Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("Failed:    %d\n", summary.Failed)
	fmt.Printf("Skipped:   %d\n", len(skipped))

	if buildStats {
		printStats(collector.Snapshot())
	}

	if summary.Fatal {
		return fmt.Errorf("stopped early: the API rejected further requests; %d markers left pending", len(pending)-len(results))
	}
	if summary.Succeeded == 0 && summary.Failed > 0 {
		return fmt.Errorf("all %d attempted markers failed", summary.Failed)
	}

	return nil
}

// printResultLine is the plain-output progress reporter. It runs under
// the scheduler's result mutex, so lines never interleave.
func printResultLine(res models.FetchResult, done, total int) {
	if res.Success {
		fmt.Printf("[%d/%d] ✓ %s -> %s (%d bytes)\n", done, total, res.Marker, res.Path, res.Bytes)
	} else {
		fmt.Printf("[%d/%d] ✗ %s: %s\n", done, total, res.Marker, res.Err)
	}
}

func printStats(snap metrics.Snapshot) {
	fmt.Println("\nStatistics:")
	if snap.SourceRead != nil {
		fmt.Printf("  Source read:  %d ms\n", snap.SourceRead.TotalTimeMs)
	}
	if snap.Generate != nil {
		g := snap.Generate
		fmt.Printf("  Requests:     %d\n", g.Count)
		fmt.Printf("  Total time:   %d ms (avg %.0f, min %d, max %d)\n", g.TotalTimeMs, g.AvgTimeMs, g.MinTimeMs, g.MaxTimeMs)
		if g.TotalBytes != nil {
			fmt.Printf("  Bytes:        %d (avg %.0f, min %d, max %d)\n", *g.TotalBytes, *g.AvgBytes, *g.MinBytes, *g.MaxBytes)
		}
	}
	fmt.Printf("  Elapsed:      %.1f s\n", snap.UptimeSeconds)
}
