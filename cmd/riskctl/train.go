package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"riskscreen/db"
	"riskscreen/ml"
)

type trainOptions struct {
	data      string
	target    string
	modelType string
	out       string
	dbPath    string
	cfg       ml.TrainingConfig
}

func newTrainCmd() *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model from a labelled CSV and write the artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.data, "data", "", "training CSV with a header row")
	f.StringVar(&opts.target, "target", ml.DefaultTarget, "label column")
	f.StringVar(&opts.modelType, "type", ml.ModelLogisticRegression, "model type: logistic_regression or decision_tree")
	f.StringVar(&opts.out, "out", "diabetes_model.json", "artifact output path")
	f.StringVar(&opts.dbPath, "db", "", "SQLite database to record the training run in")
	f.Float64Var(&opts.cfg.TestRatio, "test-ratio", 0.2, "held-out fraction")
	f.Float64Var(&opts.cfg.Threshold, "threshold", 0.5, "probability threshold for label 1")
	f.Int64Var(&opts.cfg.Seed, "seed", 42, "shuffle seed")
	f.IntVar(&opts.cfg.Epochs, "epochs", 200, "gradient descent epochs (logistic_regression)")
	f.Float64Var(&opts.cfg.LearningRate, "lr", 0.1, "learning rate (logistic_regression)")
	f.IntVar(&opts.cfg.MaxTreeDepth, "max-depth", 10, "maximum tree depth (decision_tree)")
	cmd.MarkFlagRequired("data")
	return cmd
}

func runTrain(cmd *cobra.Command, opts *trainOptions) error {
	ds, err := ml.LoadDatasetFile(opts.data, opts.target)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	cfg := opts.cfg
	cfg.ModelType = opts.modelType

	artifact, metrics, err := ml.Train(cfg, ds)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := ml.SaveArtifact(opts.out, artifact); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rows=%d skipped=%d train=%d test=%d\n", metrics.DataPoints, ds.Skipped, metrics.TrainRows, metrics.TestRows)
	fmt.Fprintf(out, "accuracy=%.4f precision=%.4f recall=%.4f\n", metrics.Accuracy, metrics.Precision, metrics.Recall)
	fmt.Fprintf(out, "model saved to %s\n", opts.out)

	if opts.dbPath == "" {
		return nil
	}
	store, err := db.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveTrainingLog(context.Background(), db.TrainingLog{
		ModelName:  artifact.ModelType(),
		Accuracy:   metrics.Accuracy,
		Precision:  metrics.Precision,
		Recall:     metrics.Recall,
		DataPoints: metrics.DataPoints,
	})
}
