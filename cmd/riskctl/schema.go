package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"riskscreen/ml"
)

func newSchemaCmd() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature schema a model expects",
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := ml.LoadArtifact(model)
			if err != nil {
				return err
			}
			schema := artifact.Schema()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "target: %s\nmodel: %s\n\n", schema.Target(), artifact.ModelType())
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCOLUMN\tKIND\tDEFAULT\tBOUND")
			for i, f := range schema.Fields() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%s\n", i, f.Name, f.Kind, f.Default, f.Bound)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&model, "model", "diabetes_model.json", "model artifact")
	return cmd
}
