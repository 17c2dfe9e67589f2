package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// LogisticRegression is a binary logistic model with an optional standard
// scaler applied before the linear term.
type LogisticRegression struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Mean      []float64 `json:"mean,omitempty"`
	Scale     []float64 `json:"scale,omitempty"`
	Threshold float64   `json:"-"`
}

func (m *LogisticRegression) NumFeatures() int { return len(m.Weights) }

func (m *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(m.Weights) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("%w: expected %d features, got %d", ErrSchemaMismatch, len(m.Weights), len(features))
	}
	z := m.Bias
	for i, x := range features {
		z += m.Weights[i] * m.standardize(i, x)
	}
	// +Inf and -Inf saturate to 1 and 0; opposing overflows or 0*Inf do not
	if math.IsNaN(z) {
		return 0, ErrUndefinedScore
	}
	return sigmoid(z), nil
}

func (m *LogisticRegression) PredictLabel(features []float64) (int, error) {
	p, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if p >= m.threshold() {
		return 1, nil
	}
	return 0, nil
}

func (m *LogisticRegression) threshold() float64 {
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return 0.5
	}
	return m.Threshold
}

func (m *LogisticRegression) standardize(i int, x float64) float64 {
	if len(m.Mean) != len(m.Weights) || len(m.Scale) != len(m.Weights) {
		return x
	}
	if m.Scale[i] == 0 {
		return 0
	}
	return (x - m.Mean[i]) / m.Scale[i]
}

func (m *LogisticRegression) validate() error {
	if len(m.Weights) == 0 {
		return errors.New("logistic regression has no weights")
	}
	if len(m.Mean) != 0 && len(m.Mean) != len(m.Weights) {
		return fmt.Errorf("mean has %d entries, weights %d", len(m.Mean), len(m.Weights))
	}
	if len(m.Scale) != 0 && len(m.Scale) != len(m.Weights) {
		return fmt.Errorf("scale has %d entries, weights %d", len(m.Scale), len(m.Weights))
	}
	return nil
}

// Train fits the model with full-batch gradient descent on standardized features.
func (m *LogisticRegression) Train(features [][]float64, labels []int, epochs int, lr float64) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if epochs <= 0 {
		epochs = 200
	}
	if lr <= 0 {
		lr = 0.1
	}

	n := len(features[0])
	m.Mean, m.Scale = fitScaler(features)
	m.Weights = make([]float64, n)
	m.Bias = 0

	scaled := make([][]float64, len(features))
	for i, row := range features {
		if len(row) != n {
			return fmt.Errorf("row %d has %d features, expected %d", i, len(row), n)
		}
		scaled[i] = make([]float64, n)
		for j, x := range row {
			scaled[i][j] = m.standardize(j, x)
		}
	}

	count := float64(len(scaled))
	grad := make([]float64, n)
	for ep := 0; ep < epochs; ep++ {
		for j := range grad {
			grad[j] = 0
		}
		gb := 0.0
		for i, row := range scaled {
			z := m.Bias
			for j, x := range row {
				z += m.Weights[j] * x
			}
			d := sigmoid(z) - float64(labels[i])
			for j, x := range row {
				grad[j] += d * x
			}
			gb += d
		}
		for j := range m.Weights {
			m.Weights[j] -= lr * grad[j] / count
		}
		m.Bias -= lr * gb / count
	}
	return nil
}

func (m *LogisticRegression) MarshalJSON() ([]byte, error) {
	type alias LogisticRegression
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{Type: ModelLogisticRegression, alias: (*alias)(m)})
}

func fitScaler(features [][]float64) (mean, scale []float64) {
	n := len(features[0])
	mean = make([]float64, n)
	scale = make([]float64, n)
	for _, row := range features {
		for j := 0; j < n && j < len(row); j++ {
			mean[j] += row[j]
		}
	}
	count := float64(len(features))
	for j := range mean {
		mean[j] /= count
	}
	for _, row := range features {
		for j := 0; j < n && j < len(row); j++ {
			d := row[j] - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / count)
	}
	return mean, scale
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
