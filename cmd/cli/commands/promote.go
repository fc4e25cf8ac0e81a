package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type PromoteOptions struct {
	ModelName string
	VersionID string
	UserID    string
}

func NewPromoteCmd() *cobra.Command {
	opts := &PromoteOptions{}

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote a version to production",
		Long: `Promote the given version to production, archiving the current
production version if one exists.`,
		Example: `  modelreg promote --name risk_classifier --version v20250101000000_cafe0001 --user alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromote(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ModelName, "name", "n", "", "Logical model name (required)")
	cmd.Flags().StringVar(&opts.VersionID, "version", "", "Version id to promote (required)")
	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "User id recorded in the audit log")

	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("version")

	return cmd
}

func runPromote(opts *PromoteOptions) error {
	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	promoted, err := reg.PromoteToProduction(ctx, opts.ModelName, opts.VersionID, opts.UserID)
	if err != nil {
		return err
	}

	if !promoted {
		fmt.Printf("Version %s was not promoted (already production or lost a concurrent race)\n", opts.VersionID)
		return nil
	}

	fmt.Printf("Promoted %s version %s to production\n", opts.ModelName, opts.VersionID)
	return nil
}
