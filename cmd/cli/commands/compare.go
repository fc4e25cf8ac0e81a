package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type CompareOptions struct {
	ModelName  string
	VersionIDs []string
	Metric     string
}

func NewCompareCmd() *cobra.Command {
	opts := &CompareOptions{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare versions of a model by a metric",
		Long: `Rank versions by the named metric, best first. Versions missing the
metric sort last. Compares all versions unless specific ids are given.`,
		Example: `  modelreg compare --name risk_classifier --metric roc_auc
  modelreg compare --name risk_classifier --version v1 --version v2 --metric f1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ModelName, "name", "n", "", "Logical model name (required)")
	cmd.Flags().StringArrayVar(&opts.VersionIDs, "version", nil, "Version id to include, repeatable (default all)")
	cmd.Flags().StringVarP(&opts.Metric, "metric", "m", "", "Metric to rank by (default from config)")

	cmd.MarkFlagRequired("name")

	return cmd
}

func runCompare(opts *CompareOptions) error {
	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	comparisons, err := reg.CompareVersions(ctx, opts.ModelName, opts.VersionIDs, opts.Metric)
	if err != nil {
		return err
	}

	if len(comparisons) == 0 {
		fmt.Printf("No versions registered for %s\n", opts.ModelName)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "VERSION\tSTATUS\t%s\tCREATED\n", comparisons[0].MetricName)
	for _, c := range comparisons {
		value := "-"
		if c.HasMetric {
			value = fmt.Sprintf("%.4f", c.MetricValue)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.VersionID, c.Status, value, c.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
