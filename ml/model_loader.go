package ml

import (
	"encoding/json"
	"fmt"
)

const (
	ModelLogisticRegression = "logistic_regression"
	ModelDecisionTree       = "decision_tree"
)

// decodeModel builds a classifier from the "model" object of an artifact.
func decodeModel(raw json.RawMessage, threshold float64) (Classifier, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode model header: %w", err)
	}

	switch header.Type {
	case ModelLogisticRegression:
		model := &LogisticRegression{}
		if err := json.Unmarshal(raw, model); err != nil {
			return nil, fmt.Errorf("decode logistic regression: %w", err)
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		model.Threshold = threshold
		return model, nil
	case ModelDecisionTree:
		model := &DecisionTree{}
		if err := json.Unmarshal(raw, model); err != nil {
			return nil, fmt.Errorf("decode decision tree: %w", err)
		}
		if err := model.validate(); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", header.Type)
	}
}
