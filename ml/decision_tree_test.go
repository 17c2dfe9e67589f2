package ml

import "testing"

func TestDecisionTreeTrainPredict(t *testing.T) {
	features := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	labels := []int{0, 0, 1, 1}

	model := NewDecisionTree(2)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.validate(); err != nil {
		t.Fatalf("trained tree is invalid: %v", err)
	}

	label, err := model.PredictLabel([]float64{0.15, 0.15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 0 {
		t.Fatalf("expected label 0, got %d", label)
	}
	label, err = model.PredictLabel([]float64{0.85, 0.85})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != 1 {
		t.Fatalf("expected label 1, got %d", label)
	}
}

func TestDecisionTreeDeepChildIndices(t *testing.T) {
	// four clusters force a second level on both sides of the root
	features := [][]float64{
		{0, 0}, {0, 0}, {0, 1}, {0, 1},
		{1, 0}, {1, 0}, {1, 1}, {1, 1},
	}
	labels := []int{0, 0, 1, 1, 1, 1, 0, 0}

	model := NewDecisionTree(3)
	if err := model.Train(features, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := model.validate(); err != nil {
		t.Fatalf("trained tree is invalid: %v", err)
	}
	for i, f := range features {
		label, err := model.PredictLabel(f)
		if err != nil {
			t.Fatalf("row %d: unexpected error: %v", i, err)
		}
		if label != labels[i] {
			t.Errorf("row %d: expected label %d, got %d", i, labels[i], label)
		}
	}
}

func TestDecisionTreeUntrained(t *testing.T) {
	if _, err := (&DecisionTree{}).PredictLabel([]float64{1}); err == nil {
		t.Fatal("expected error for untrained tree")
	}
}

func TestDecisionTreeFeatureCountMismatch(t *testing.T) {
	model := NewDecisionTree(2)
	if err := model.Train([][]float64{{0}, {1}}, []int{0, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.PredictLabel([]float64{0, 1}); err == nil {
		t.Fatal("expected error for feature count mismatch")
	}
}
