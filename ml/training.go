package ml

import (
	"fmt"
	"math"
	"math/rand"
)

type TrainingConfig struct {
	ModelType string
	TestRatio float64
	Threshold float64
	Seed      int64

	Epochs       int
	LearningRate float64
	MaxTreeDepth int
}

// Metrics are computed on the held-out split with label 1 as the positive class.
type Metrics struct {
	Accuracy   float64 `json:"accuracy"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	TrainRows  int     `json:"train_rows"`
	TestRows   int     `json:"test_rows"`
	DataPoints int     `json:"data_points"`
}

// Train fits the configured model on ds and returns an artifact ready to save.
func Train(cfg TrainingConfig, ds *Dataset) (*Artifact, Metrics, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, Metrics{}, fmt.Errorf("dataset is empty")
	}
	trainX, trainY, testX, testY := SplitDataset(ds.Features, ds.Labels, cfg.TestRatio, cfg.Seed)

	var model Classifier
	switch cfg.ModelType {
	case "", ModelLogisticRegression:
		lr := &LogisticRegression{Threshold: cfg.Threshold}
		if err := lr.Train(trainX, trainY, cfg.Epochs, cfg.LearningRate); err != nil {
			return nil, Metrics{}, err
		}
		model = lr
	case ModelDecisionTree:
		dt := NewDecisionTree(cfg.MaxTreeDepth)
		if err := dt.Train(trainX, trainY); err != nil {
			return nil, Metrics{}, err
		}
		model = dt
	default:
		return nil, Metrics{}, fmt.Errorf("unsupported model type %q", cfg.ModelType)
	}

	artifact, err := NewArtifact(ds.Schema.Target(), ds.Schema.Names(), cfg.Threshold, model)
	if err != nil {
		return nil, Metrics{}, err
	}
	metrics := Evaluate(model, testX, testY)
	metrics.TrainRows = len(trainX)
	metrics.TestRows = len(testX)
	metrics.DataPoints = ds.Len()
	return artifact, metrics, nil
}

func SplitDataset(features [][]float64, labels []int, testRatio float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(features))

	split := int(math.Round(float64(len(features)) * (1 - testRatio)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func Evaluate(model Classifier, testX [][]float64, testY []int) Metrics {
	var m Metrics
	if len(testX) == 0 {
		return m
	}

	var correct, truePositive, predictedPositive, actualPositive, evaluated int
	for i, feature := range testX {
		label, err := model.PredictLabel(feature)
		if err != nil {
			continue
		}
		evaluated++
		if label == testY[i] {
			correct++
		}
		if label == 1 {
			predictedPositive++
		}
		if testY[i] == 1 {
			actualPositive++
			if label == 1 {
				truePositive++
			}
		}
	}

	if evaluated > 0 {
		m.Accuracy = float64(correct) / float64(evaluated)
	}
	if predictedPositive > 0 {
		m.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		m.Recall = float64(truePositive) / float64(actualPositive)
	}
	return m
}
