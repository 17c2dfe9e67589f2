package ml

// Classifier predicts a binary label from a feature vector in schema order.
type Classifier interface {
	PredictLabel(features []float64) (int, error)
	NumFeatures() int
}

// ProbabilityClassifier is a Classifier that also exposes P(label=1).
type ProbabilityClassifier interface {
	Classifier
	PredictProba(features []float64) (float64, error)
}

// Result is the outcome of one prediction.
type Result struct {
	Label       int      `json:"label"`
	Probability *float64 `json:"probability,omitempty"`
}

func (r Result) HasProbability() bool { return r.Probability != nil }
