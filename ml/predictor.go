package ml

import (
	"context"
	"fmt"
	"strings"
)

// Predictor pairs a loaded artifact with the row builder for its schema.
// It holds no mutable state and is safe for concurrent use.
type Predictor struct {
	artifact *Artifact
	builder  *RowBuilder
}

func NewPredictor(artifact *Artifact, opts ...BuilderOption) *Predictor {
	return &Predictor{
		artifact: artifact,
		builder:  NewRowBuilder(artifact.Schema(), opts...),
	}
}

func (p *Predictor) Artifact() *Artifact { return p.artifact }

func (p *Predictor) Schema() *Schema { return p.artifact.Schema() }

func (p *Predictor) Builder() *RowBuilder { return p.builder }

func (p *Predictor) BuildRow(answers AnswerSet) (FeatureRow, error) {
	return p.builder.Build(answers)
}

// Predict classifies a row whose columns must equal the model's columns.
func (p *Predictor) Predict(ctx context.Context, row FeatureRow) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !p.artifact.Schema().Matches(row.Columns) || len(row.Values) != len(row.Columns) {
		return Result{}, fmt.Errorf("%w: got [%s], want [%s]", ErrSchemaMismatch,
			strings.Join(row.Columns, ","), strings.Join(p.artifact.Columns, ","))
	}

	label, err := p.artifact.Model.PredictLabel(row.Values)
	if err != nil {
		return Result{}, fmt.Errorf("predict label: %w", err)
	}
	result := Result{Label: label}

	if pc, ok := p.artifact.Model.(ProbabilityClassifier); ok {
		prob, err := pc.PredictProba(row.Values)
		if err != nil {
			return Result{}, fmt.Errorf("predict probability: %w", err)
		}
		result.Probability = &prob
	}
	return result, nil
}

// PredictAnswers builds a row from answers and classifies it.
func (p *Predictor) PredictAnswers(ctx context.Context, answers AnswerSet) (FeatureRow, Result, error) {
	row, err := p.builder.Build(answers)
	if err != nil {
		return FeatureRow{}, Result{}, err
	}
	result, err := p.Predict(ctx, row)
	if err != nil {
		return row, Result{}, err
	}
	return row, result, nil
}
