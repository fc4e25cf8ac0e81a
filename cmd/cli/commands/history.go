package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type HistoryOptions struct {
	ModelName string
	Limit     int
}

func NewHistoryCmd() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Show a model's deployment history",
		Example: `  modelreg history --name risk_classifier --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ModelName, "name", "n", "", "Logical model name (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 10, "Maximum entries to show (0 for all)")

	cmd.MarkFlagRequired("name")

	return cmd
}

func runHistory(opts *HistoryOptions) error {
	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	history, err := reg.GetDeploymentHistory(ctx, opts.ModelName, opts.Limit)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Printf("No deployments recorded for %s\n", opts.ModelName)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tFROM\tTO\tUSER")
	for _, record := range history {
		from := record.FromVersion
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.Timestamp.Format(time.RFC3339), record.Action, from, record.ToVersion, record.UserID)
	}
	return w.Flush()
}
