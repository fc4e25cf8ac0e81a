package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type ListOptions struct {
	ModelName string
	Limit     int
	Format    string
}

func NewListCmd() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered versions of a model",
		Example: `  modelreg list --name risk_classifier --limit 20
  modelreg list --name risk_classifier --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ModelName, "name", "n", "", "Logical model name (required)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 10, "Maximum versions to show (0 for all)")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "Output format (table, json)")

	cmd.MarkFlagRequired("name")

	return cmd
}

func runList(opts *ListOptions) error {
	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	versions, err := reg.ListVersions(ctx, opts.ModelName, opts.Limit)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(versions)
	}

	if len(versions) == 0 {
		fmt.Printf("No versions registered for %s\n", opts.ModelName)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tCREATED\tDEPLOYED\tCREATED BY")
	for _, v := range versions {
		deployed := "-"
		if v.DeployedAt != nil {
			deployed = v.DeployedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.VersionID, v.Status, v.CreatedAt.Format(time.RFC3339), deployed, v.CreatedBy)
	}
	return w.Flush()
}
