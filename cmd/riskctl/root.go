package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "riskctl",
		Short:        "Train and query diabetes risk screening models",
		Long:         "riskctl trains a screening model from a BRFSS-style CSV, inspects its feature schema and scores answers from the command line.",
		SilenceUsage: true,
	}

	root.AddCommand(newTrainCmd())
	root.AddCommand(newPredictCmd())
	root.AddCommand(newSchemaCmd())
	return root
}
