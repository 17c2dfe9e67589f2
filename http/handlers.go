package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"riskscreen/ml"
)

// debugColumns 调试视图中展示的前几列
const debugColumns = 5

// Register 注册所有路由
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", s.handleSchema)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /api/predictions", s.handlePredictions)
	if s.feed != nil {
		mux.Handle("GET /api/ws/predictions", s.feed)
	}
	mux.HandleFunc("GET /{$}", s.handleForm)
	mux.HandleFunc("POST /predict", s.handleFormSubmit)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fieldView struct {
	Name    string   `json:"name"`
	Label   string   `json:"label,omitempty"`
	Help    string   `json:"help,omitempty"`
	Kind    string   `json:"kind"`
	Default float64  `json:"default"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

type schemaResponse struct {
	Target       string      `json:"target"`
	ModelType    string      `json:"model_type"`
	ModelDigest  string      `json:"model_digest"`
	Fields       []fieldView `json:"fields"`
	SimpleFields []string    `json:"simple_fields"`
}

func (s *Service) handleSchema(w http.ResponseWriter, r *http.Request) {
	predictor := s.models.Current()
	if predictor == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no model loaded"))
		return
	}
	schema := predictor.Schema()
	resp := schemaResponse{
		Target:       schema.Target(),
		ModelType:    predictor.Artifact().ModelType(),
		ModelDigest:  predictor.Artifact().Digest,
		SimpleFields: simpleFieldNames(schema),
	}
	for _, f := range schema.Fields() {
		resp.Fields = append(resp.Fields, fieldView{
			Name:    f.Name,
			Label:   f.Label,
			Help:    f.Help,
			Kind:    f.Kind.String(),
			Default: f.Default,
			Min:     f.Bound.Min,
			Max:     f.Bound.Max,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type predictRequest struct {
	Answers map[string]any `json:"answers"`
	Mode    string         `json:"mode,omitempty"`
	Debug   bool           `json:"debug,omitempty"`
}

type predictResponse struct {
	ID          string    `json:"id,omitempty"`
	Label       int       `json:"label"`
	Probability *float64  `json:"probability,omitempty"`
	RiskLabel   string    `json:"risk_label"`
	Cached      bool      `json:"cached"`
	ModelDigest string    `json:"model_digest"`
	Columns     []string  `json:"columns,omitempty"`
	Row         []float64 `json:"row,omitempty"`
}

func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Mode == "" {
		req.Mode = "api"
	}

	outcome, err := s.Predict(r.Context(), req.Mode, ml.AnswerSet(req.Answers))
	if err != nil {
		s.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, statusFor(err), err)
		return
	}

	resp := predictResponse{
		ID:          outcome.ID,
		Label:       outcome.Result.Label,
		Probability: outcome.Result.Probability,
		RiskLabel:   RiskLabel(outcome.Result.Label),
		Cached:      outcome.Cached,
		ModelDigest: outcome.ModelDigest,
	}
	if req.Debug {
		resp.Columns = outcome.Row.Columns
		resp.Row = outcome.Row.Values
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("prediction history is disabled"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	records, err := s.history.RecentPredictions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// statusFor 将预测错误映射为HTTP状态码
func statusFor(err error) int {
	switch {
	case isInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON 先编码再写状态码，编码失败时返回500
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
