package ml

import (
	"fmt"
	"strings"
	"testing"
)

// syntheticCSV produces rows where diabetes follows BMI >= 30.
func syntheticCSV(rows int) string {
	var b strings.Builder
	b.WriteString("Diabetes_binary," + strings.Join(DefaultColumns(), ",") + "\n")
	for i := 0; i < rows; i++ {
		bmi := 18.0 + float64(i%25)
		label := "0.0"
		if bmi >= 30 {
			label = "1.0"
		}
		values := []string{label}
		for _, c := range DefaultColumns() {
			switch c {
			case "BMI":
				values = append(values, fmt.Sprintf("%.1f", bmi))
			case "HighBP":
				values = append(values, fmt.Sprintf("%d.0", i%2))
			case "Age":
				values = append(values, "9.0")
			default:
				values = append(values, "0.0")
			}
		}
		b.WriteString(strings.Join(values, ",") + "\n")
	}
	return b.String()
}

func TestLoadDataset(t *testing.T) {
	zeros := strings.Repeat("0,", len(DefaultColumns())-1) + "0\n"
	data := syntheticCSV(10) + "2.0," + zeros + "," + zeros + "  ," + zeros
	ds, err := LoadDataset(strings.NewReader(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 10 {
		t.Fatalf("dataset len = %d, want 10", ds.Len())
	}
	if ds.Skipped != 3 {
		t.Errorf("skipped = %d, want 3 for the non-binary and blank labels", ds.Skipped)
	}
	for i, label := range ds.Labels {
		if label != 0 && label != 1 {
			t.Errorf("label %d = %v", i, label)
		}
	}
	if !ds.Schema.Matches(DefaultColumns()) {
		t.Errorf("dataset columns %v", ds.Schema.Names())
	}
	if got := ds.Features[1][0]; got != 1 {
		t.Errorf("HighBP of row 1 = %v, want 1", got)
	}
}

func TestLoadDatasetMissingTarget(t *testing.T) {
	if _, err := LoadDataset(strings.NewReader("BMI,Age\n30,9\n"), ""); err == nil {
		t.Fatal("expected error for missing target column")
	}
}

func TestTrainLogisticRegression(t *testing.T) {
	ds, err := LoadDataset(strings.NewReader(syntheticCSV(400)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	artifact, metrics, err := Train(TrainingConfig{
		ModelType:    ModelLogisticRegression,
		TestRatio:    0.25,
		Seed:         7,
		Epochs:       300,
		LearningRate: 0.5,
	}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.TrainRows+metrics.TestRows != 400 {
		t.Fatalf("split lost rows: %+v", metrics)
	}
	if metrics.Accuracy < 0.9 {
		t.Errorf("accuracy = %.2f, expected a separable dataset to train above 0.9", metrics.Accuracy)
	}
	if artifact.ModelType() != ModelLogisticRegression {
		t.Errorf("model type = %s", artifact.ModelType())
	}
}

func TestTrainDecisionTree(t *testing.T) {
	ds, err := LoadDataset(strings.NewReader(syntheticCSV(200)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	artifact, metrics, err := Train(TrainingConfig{ModelType: ModelDecisionTree, MaxTreeDepth: 4, Seed: 1}, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.Accuracy < 0.9 {
		t.Errorf("accuracy = %.2f", metrics.Accuracy)
	}
	if _, ok := artifact.Model.(ProbabilityClassifier); ok {
		t.Error("decision tree should not expose probabilities")
	}
}

func TestTrainUnknownModel(t *testing.T) {
	ds, err := LoadDataset(strings.NewReader(syntheticCSV(20)), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := Train(TrainingConfig{ModelType: "svm"}, ds); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}

func TestEvaluate(t *testing.T) {
	tree := &DecisionTree{Features: 1, Nodes: []TreeNode{
		{FeatureIdx: 0, Threshold: 0.5, LeftChild: 1, RightChild: 2},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 1, IsLeaf: true},
	}}
	m := Evaluate(tree, [][]float64{{0}, {1}, {1}, {0}}, []int{0, 1, 0, 1})
	if m.Accuracy != 0.5 || m.Precision != 0.5 || m.Recall != 0.5 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}
