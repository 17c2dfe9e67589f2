package http

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"riskscreen/db"
	"riskscreen/ml"
)

// ModelSource returns the predictor that should serve the next request.
type ModelSource interface {
	Current() *ml.Predictor
}

// PredictionStore records served predictions. It is optional.
type PredictionStore interface {
	SavePrediction(ctx context.Context, record *db.PredictionRecord) error
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
}

// Service wires the model, result cache, history and live feed behind the HTTP handlers.
type Service struct {
	models  ModelSource
	cache   *ml.ResultCache
	history PredictionStore
	feed    *Feed
	logger  *zap.Logger
}

type Option func(*Service)

func WithCache(cache *ml.ResultCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithHistory(store PredictionStore) Option {
	return func(s *Service) { s.history = store }
}

func WithFeed(feed *Feed) Option {
	return func(s *Service) { s.feed = feed }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(models ModelSource, opts ...Option) *Service {
	s := &Service{models: models, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome is a served prediction together with the row it was computed from.
type Outcome struct {
	ID          string        `json:"id,omitempty"`
	Mode        string        `json:"mode"`
	Row         ml.FeatureRow `json:"row"`
	Result      ml.Result     `json:"result"`
	Cached      bool          `json:"cached"`
	ModelDigest string        `json:"model_digest"`
}

// Predict normalizes answers against the current model's schema and classifies them.
// Input errors wrap ml.ErrMalformedField or ml.ErrFieldOutOfRange.
func (s *Service) Predict(ctx context.Context, mode string, answers ml.AnswerSet) (Outcome, error) {
	predictor := s.models.Current()
	if predictor == nil {
		return Outcome{}, errors.New("no model loaded")
	}

	row, err := predictor.BuildRow(answers)
	if err != nil {
		return Outcome{}, err
	}
	result, cached, err := s.cache.Predict(ctx, predictor, row)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		Mode:        mode,
		Row:         row,
		Result:      result,
		Cached:      cached,
		ModelDigest: predictor.Artifact().Digest,
	}
	s.record(ctx, &outcome)
	s.publish(outcome)
	return outcome, nil
}

// record never fails the prediction; a history write error is only logged.
func (s *Service) record(ctx context.Context, outcome *Outcome) {
	if s.history == nil {
		return
	}
	record := &db.PredictionRecord{
		Mode:        outcome.Mode,
		Row:         outcome.Row,
		Label:       outcome.Result.Label,
		Probability: outcome.Result.Probability,
		ModelDigest: outcome.ModelDigest,
	}
	if err := s.history.SavePrediction(ctx, record); err != nil {
		s.logger.Warn("failed to record prediction", zap.Error(err))
		return
	}
	outcome.ID = record.ID
}

func (s *Service) publish(outcome Outcome) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(PredictionEvent{
		ID:          outcome.ID,
		Mode:        outcome.Mode,
		Label:       outcome.Result.Label,
		Probability: outcome.Result.Probability,
		ModelDigest: outcome.ModelDigest,
		Timestamp:   time.Now().UTC(),
	})
}

func isInputError(err error) bool {
	return errors.Is(err, ml.ErrMalformedField) || errors.Is(err, ml.ErrFieldOutOfRange) ||
		errors.Is(err, ml.ErrUndefinedScore)
}

// RiskLabel is the human readable form of a predicted label.
func RiskLabel(label int) string {
	if label == 1 {
		return "At Risk"
	}
	return "No Diabetes Risk"
}
