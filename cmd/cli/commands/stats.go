package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type StatsOptions struct {
	Format string
}

func NewStatsCmd() *cobra.Command {
	opts := &StatsOptions{}

	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Show registry-wide statistics",
		Example: `  modelreg stats
  modelreg stats --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "table", "Output format (table, json)")

	return cmd
}

func runStats(opts *StatsOptions) error {
	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := reg.GetStatistics(ctx)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	fmt.Printf("Models:           %d\n", stats.TotalModels)
	fmt.Printf("Versions:         %d\n", stats.TotalVersions)
	fmt.Printf("In production:    %d\n", stats.ProductionModels)

	fmt.Println("\nVersions by status:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for status, count := range stats.StatusCounts {
		fmt.Fprintf(w, "  %s\t%d\n", status, count)
	}
	w.Flush()

	if len(stats.MeanMetrics) > 0 {
		fmt.Println("\nMean metrics across all versions:")
		names := make([]string, 0, len(stats.MeanMetrics))
		for name := range stats.MeanMetrics {
			names = append(names, name)
		}
		sort.Strings(names)

		mw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, name := range names {
			fmt.Fprintf(mw, "  %s\t%.4f\n", name, stats.MeanMetrics[name])
		}
		mw.Flush()
	}

	return nil
}
