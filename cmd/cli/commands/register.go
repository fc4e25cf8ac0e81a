package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitalsight/modelregistry/pkg/models"
)

type RegisterOptions struct {
	ModelFile       string
	ModelName       string
	ModelType       string
	Metrics         []string
	DatasetVersion  string
	Hyperparameters string
	FeatureNames    []string
	TrainingSamples int
	Notes           string
	UserID          string
}

func NewRegisterCmd() *cobra.Command {
	opts := &RegisterOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new model version",
		Long: `Register a serialized model artifact as a new version. The new version
starts in the registered status; promote it separately.`,
		Example: `  # Register a model with its evaluation metrics
  modelreg register --name risk_classifier --type xgboost \
    --model-file ./model.bin --metric roc_auc=0.91 --metric f1=0.84 \
    --dataset ds-2025-01 --hyperparameters '{"max_depth": 6}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts)
		},
	}

	cmd.Flags().StringVar(&opts.ModelFile, "model-file", "", "Path to the serialized model artifact (required)")
	cmd.Flags().StringVarP(&opts.ModelName, "name", "n", "", "Logical model name (required)")
	cmd.Flags().StringVarP(&opts.ModelType, "type", "t", "", "Algorithm family, informational")
	cmd.Flags().StringArrayVar(&opts.Metrics, "metric", nil, "Evaluation metric as name=value, repeatable")
	cmd.Flags().StringVar(&opts.DatasetVersion, "dataset", "", "Dataset version the model was trained on")
	cmd.Flags().StringVar(&opts.Hyperparameters, "hyperparameters", "{}", "Hyperparameters as a JSON object")
	cmd.Flags().StringSliceVar(&opts.FeatureNames, "features", nil, "Ordered feature names")
	cmd.Flags().IntVar(&opts.TrainingSamples, "training-samples", 0, "Number of training samples")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "User id recorded as the creator")

	cmd.MarkFlagRequired("model-file")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runRegister(opts *RegisterOptions) error {
	blob, err := os.ReadFile(opts.ModelFile)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}

	metricValues, err := parseMetrics(opts.Metrics)
	if err != nil {
		return err
	}

	hyperparameters := map[string]interface{}{}
	if err := json.Unmarshal([]byte(opts.Hyperparameters), &hyperparameters); err != nil {
		return fmt.Errorf("invalid hyperparameters JSON: %w", err)
	}

	ctx := context.Background()
	reg, cleanup, err := openRegistry(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	versionID, err := reg.Register(ctx, &models.RegisterRequest{
		Model:            blob,
		ModelName:        opts.ModelName,
		ModelType:        opts.ModelType,
		Metrics:          metricValues,
		DatasetVersion:   opts.DatasetVersion,
		Hyperparameters:  hyperparameters,
		FeatureNames:     opts.FeatureNames,
		NTrainingSamples: opts.TrainingSamples,
		Notes:            opts.Notes,
		UserID:           opts.UserID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s version %s\n", opts.ModelName, versionID)
	return nil
}
