package ml

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// bmiModel is a logistic model that only looks at BMI: p = sigmoid(0.2*BMI - 6).
func bmiModel() *LogisticRegression {
	columns := DefaultColumns()
	weights := make([]float64, len(columns))
	for i, c := range columns {
		if c == "BMI" {
			weights[i] = 0.2
		}
	}
	return &LogisticRegression{Weights: weights, Bias: -6}
}

func newTestPredictor(t *testing.T, opts ...BuilderOption) *Predictor {
	t.Helper()
	artifact, err := NewArtifact("", DefaultColumns(), 0.5, bmiModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewPredictor(artifact, opts...)
}

func TestPredictorUndefinedScore(t *testing.T) {
	artifact, err := NewArtifact("", []string{"BMI", "Lab"}, 0.5, &LogisticRegression{Weights: []float64{2, -2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := NewPredictor(artifact)

	_, _, err = p.PredictAnswers(context.Background(), AnswerSet{"BMI": 1.7e308, "Lab": 1.7e308})
	if !errors.Is(err, ErrUndefinedScore) {
		t.Fatalf("expected ErrUndefinedScore, got %v", err)
	}

	// a one-sided overflow still saturates
	_, result, err := p.PredictAnswers(context.Background(), AnswerSet{"BMI": 1.7e308, "Lab": 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Label != 1 || *result.Probability != 1 {
		t.Errorf("saturated result = %d/%v, want 1/1", result.Label, *result.Probability)
	}
}

func TestPredictorPredictAnswers(t *testing.T) {
	p := newTestPredictor(t)

	tests := []struct {
		name      string
		bmi       float64
		wantLabel int
	}{
		{"obese", 31.2, 1},
		{"typical", 25, 0},
		{"boundary", 30, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, result, err := p.PredictAnswers(context.Background(), AnswerSet{"BMI": tt.bmi})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v, _ := row.Get("BMI"); v != tt.bmi {
				t.Fatalf("row BMI = %v, want %v", v, tt.bmi)
			}
			if result.Label != tt.wantLabel {
				t.Errorf("label = %d, want %d", result.Label, tt.wantLabel)
			}
			if !result.HasProbability() {
				t.Fatal("expected a probability from logistic regression")
			}
			prob := *result.Probability
			if prob < 0 || prob > 1 {
				t.Fatalf("probability %v out of [0,1]", prob)
			}
			if (prob >= 0.5) != (result.Label == 1) {
				t.Errorf("label %d inconsistent with probability %v", result.Label, prob)
			}
			want := 1 / (1 + math.Exp(-(0.2*tt.bmi - 6)))
			if math.Abs(prob-want) > 1e-9 {
				t.Errorf("probability = %v, want %v", prob, want)
			}
		})
	}
}

func TestPredictorSchemaMismatch(t *testing.T) {
	p := newTestPredictor(t)

	columns := DefaultColumns()
	columns[0], columns[1] = columns[1], columns[0]
	row := FeatureRow{Columns: columns, Values: make([]float64, len(columns))}
	if _, err := p.Predict(context.Background(), row); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for reordered columns, got %v", err)
	}

	short := FeatureRow{Columns: []string{"BMI"}, Values: []float64{30}}
	if _, err := p.Predict(context.Background(), short); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for missing columns, got %v", err)
	}
}

func TestPredictorWithoutProbability(t *testing.T) {
	tree := &DecisionTree{Nodes: []TreeNode{
		{FeatureIdx: 3, Threshold: 30, LeftChild: 1, RightChild: 2},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
	}}
	artifact, err := NewArtifact("", DefaultColumns(), 0, tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := NewPredictor(artifact)

	_, result, err := p.PredictAnswers(context.Background(), AnswerSet{"BMI": 35})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Label != 1 {
		t.Errorf("label = %d, want 1", result.Label)
	}
	if result.HasProbability() {
		t.Errorf("decision tree should not report a probability, got %v", *result.Probability)
	}
}

func TestPredictorStrictErrorsSurface(t *testing.T) {
	p := newTestPredictor(t, WithStrict(true))
	if _, _, err := p.PredictAnswers(context.Background(), AnswerSet{"BMI": "n/a"}); !errors.Is(err, ErrMalformedField) {
		t.Fatalf("expected ErrMalformedField, got %v", err)
	}
}

func TestPredictorCancelledContext(t *testing.T) {
	p := newTestPredictor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := p.PredictAnswers(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestArtifactSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models", "diabetes_model.json")

	original := newTestPredictor(t).Artifact()
	if err := SaveArtifact(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ModelType() != ModelLogisticRegression {
		t.Errorf("model type = %s", loaded.ModelType())
	}
	if loaded.Target != DefaultTarget {
		t.Errorf("target = %q", loaded.Target)
	}
	if len(loaded.Digest) != 64 {
		t.Errorf("digest %q is not a sha256 hex string", loaded.Digest)
	}
	if !loaded.Schema().Matches(DefaultColumns()) {
		t.Errorf("loaded columns %v", loaded.Columns)
	}

	ctx := context.Background()
	_, want, err := NewPredictor(original).PredictAnswers(ctx, AnswerSet{"BMI": 33})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, got, err := NewPredictor(loaded).PredictAnswers(ctx, AnswerSet{"BMI": 33})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Label != want.Label || *got.Probability != *want.Probability {
		t.Errorf("loaded model predicts %+v, original %+v", got, want)
	}
}

func TestParseArtifactRejectsInvalidDocuments(t *testing.T) {
	tests := map[string]string{
		"not json":          `{`,
		"missing columns":   `{"model":{"type":"logistic_regression","weights":[1],"bias":0}}`,
		"unknown type":      `{"columns":["BMI"],"model":{"type":"svm"}}`,
		"bad threshold":     `{"columns":["BMI"],"threshold":1.5,"model":{"type":"logistic_regression","weights":[1]}}`,
		"weights mismatch":  `{"columns":["BMI","Age"],"model":{"type":"logistic_regression","weights":[1]}}`,
		"duplicate columns": `{"columns":["BMI","BMI"],"model":{"type":"logistic_regression","weights":[1,1]}}`,
		"future version":    `{"format_version":9,"columns":["BMI"],"model":{"type":"logistic_regression","weights":[1]}}`,
		"tree bad feature":  `{"columns":["BMI"],"model":{"type":"decision_tree","nodes":[{"feature_idx":4,"threshold":1,"left_child":1,"right_child":2},{"is_leaf":true},{"is_leaf":true,"class_label":1}]}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseArtifact([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadArtifactMissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
