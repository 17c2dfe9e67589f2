package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"riskscreen/ml"
)

type predictOptions struct {
	model       string
	answers     []string
	strict      bool
	boundPolicy string
	asJSON      bool
}

func newPredictCmd() *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Score one set of answers",
		Example: `  riskctl predict --model diabetes_model.json --answer BMI=31.2 --answer HighBP=yes --answer GenHlth=4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.model, "model", "diabetes_model.json", "model artifact")
	f.StringArrayVar(&opts.answers, "answer", nil, "answer as Name=Value, repeatable")
	f.BoolVar(&opts.strict, "strict", false, "reject malformed answers instead of defaulting them")
	f.StringVar(&opts.boundPolicy, "bound-policy", ml.BoundPassThrough.String(), "pass_through, clamp or reject")
	f.BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	return cmd
}

func parseAnswers(pairs []string) (ml.AnswerSet, error) {
	answers := make(ml.AnswerSet, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("answer %q is not Name=Value", pair)
		}
		answers[name] = value
	}
	return answers, nil
}

func runPredict(cmd *cobra.Command, opts *predictOptions) error {
	answers, err := parseAnswers(opts.answers)
	if err != nil {
		return err
	}
	policy, err := ml.ParseBoundPolicy(opts.boundPolicy)
	if err != nil {
		return err
	}
	artifact, err := ml.LoadArtifact(opts.model)
	if err != nil {
		return err
	}
	predictor := ml.NewPredictor(artifact, ml.WithBoundPolicy(policy), ml.WithStrict(opts.strict))

	row, result, err := predictor.PredictAnswers(cmd.Context(), answers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Label       int           `json:"label"`
			Probability *float64      `json:"probability,omitempty"`
			Row         ml.FeatureRow `json:"row"`
		}{result.Label, result.Probability, row})
	}

	fmt.Fprintf(out, "label=%d\n", result.Label)
	if result.HasProbability() {
		fmt.Fprintf(out, "probability=%.4f\n", *result.Probability)
	}
	return nil
}
