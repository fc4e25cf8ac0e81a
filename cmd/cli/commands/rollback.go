package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type RollbackOptions struct {
	ModelName string
	VersionID string
	UserID    string
}

func NewRollbackCmd() *cobra.Command {
	opts := &RollbackOptions{}

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll production back to an earlier version",
		Long: `Bring a previously archived version back to production, archiving the
current production version. The transition is recorded as a rollback in
the deployment history.`,
		Example: `  modelreg rollback --name risk_classifier --version v20250101000000_cafe0001 --user oncall`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ModelName, "name", "n", "", "Logical model name (required)")
	cmd.Flags().StringVar(&opts.VersionID, "version", "", "Version id to restore (required)")
	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "User id recorded in the audit log")

	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("version")

	return cmd
}

func runRollback(opts *RollbackOptions) error {
	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	rolled, err := reg.RollbackToVersion(ctx, opts.ModelName, opts.VersionID, opts.UserID)
	if err != nil {
		return err
	}

	if !rolled {
		fmt.Printf("Version %s was not restored (lost a concurrent race, retry)\n", opts.VersionID)
		return nil
	}

	fmt.Printf("Rolled %s back to version %s\n", opts.ModelName, opts.VersionID)
	return nil
}
