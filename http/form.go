package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"riskscreen/ml"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

const (
	ModeSimple   = "simple"
	ModeAdvanced = "advanced"
)

type formSection struct {
	Title  string
	Fields []string
}

// 简单模式只展示常用问题，其余字段取默认值
var simpleSections = []formSection{
	{Title: "Health Indicators", Fields: []string{"BMI", "HighBP", "HighChol", "Smoker", "PhysActivity"}},
	{Title: "General Health", Fields: []string{"GenHlth", "MentHlth", "PhysHlth", "DiffWalk"}},
	{Title: "Demographics", Fields: []string{"Age", "Sex", "Education", "Income"}},
}

var advancedSections = []formSection{
	{Title: "Vitals & Conditions", Fields: []string{"BMI", "HighBP", "HighChol", "CholCheck", "Stroke", "HeartDiseaseorAttack"}},
	{Title: "Lifestyle", Fields: []string{"Smoker", "PhysActivity", "Fruits", "Veggies", "HvyAlcoholConsump"}},
	{Title: "Healthcare Access", Fields: []string{"AnyHealthcare", "NoDocbcCost"}},
	{Title: "General Health & Demographics", Fields: []string{"GenHlth", "MentHlth", "PhysHlth", "DiffWalk", "Sex", "Age", "Education", "Income"}},
}

func simpleFieldNames(schema *ml.Schema) []string {
	var names []string
	for _, section := range simpleSections {
		for _, name := range section.Fields {
			if schema.Has(name) {
				names = append(names, name)
			}
		}
	}
	return names
}

type formField struct {
	Name   string
	Label  string
	Help   string
	Widget string
	Value  string
	Min    string
	Max    string
	Step   string
}

type formSectionView struct {
	Title  string
	Fields []formField
}

type formResult struct {
	Label       int
	RiskLabel   string
	Probability string
	AtRisk      bool
	Head        ml.FeatureRow
	Columns     []string
}

type formPage struct {
	Mode      string
	OtherMode string
	Debug     bool
	Sections  []formSectionView
	Result    *formResult
	Error     string
}

func parseMode(v string) string {
	if v == ModeAdvanced {
		return ModeAdvanced
	}
	return ModeSimple
}

func (s *Service) handleForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.renderForm(w, http.StatusOK, parseMode(q.Get("mode")), q.Get("debug") != "", nil, nil, "")
}

func (s *Service) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderForm(w, http.StatusBadRequest, ModeSimple, false, nil, nil, err.Error())
		return
	}
	mode := parseMode(r.PostForm.Get("mode"))
	debug := r.PostForm.Get("debug") != ""

	predictor := s.models.Current()
	if predictor == nil {
		s.renderForm(w, http.StatusServiceUnavailable, mode, debug, r.PostForm, nil, "no model loaded")
		return
	}
	answers := make(ml.AnswerSet)
	for _, name := range predictor.Schema().Names() {
		if v, ok := r.PostForm[name]; ok && len(v) > 0 {
			answers[name] = v[0]
		}
	}

	outcome, err := s.Predict(r.Context(), mode, answers)
	if err != nil {
		s.logger.Warn("form prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		s.renderForm(w, statusFor(err), mode, debug, r.PostForm, nil, err.Error())
		return
	}

	result := &formResult{
		Label:     outcome.Result.Label,
		RiskLabel: RiskLabel(outcome.Result.Label),
		AtRisk:    outcome.Result.Label == 1,
		Head:      outcome.Row.Head(debugColumns),
		Columns:   outcome.Row.Columns,
	}
	if outcome.Result.HasProbability() {
		result.Probability = formatPercent(*outcome.Result.Probability)
	}
	s.renderForm(w, http.StatusOK, mode, debug, r.PostForm, result, "")
}

func (s *Service) renderForm(w http.ResponseWriter, status int, mode string, debug bool, values url.Values, result *formResult, errMsg string) {
	page := formPage{
		Mode:      mode,
		OtherMode: ModeAdvanced,
		Debug:     debug,
		Result:    result,
		Error:     errMsg,
	}
	if mode == ModeAdvanced {
		page.OtherMode = ModeSimple
	}
	if predictor := s.models.Current(); predictor != nil {
		page.Sections = buildSections(predictor.Schema(), mode, values)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		s.logger.Error("render form", zap.Error(err))
	}
}

// buildSections 按模式组织表单字段，模型中多出的列归入Other
func buildSections(schema *ml.Schema, mode string, values url.Values) []formSectionView {
	layout := simpleSections
	if mode == ModeAdvanced {
		layout = advancedSections
	}

	coerced := coercedValues(schema, values)
	placed := make(map[string]bool)
	var views []formSectionView
	for _, section := range layout {
		view := formSectionView{Title: section.Title}
		for _, name := range section.Fields {
			f, ok := schema.Field(name)
			if !ok {
				continue
			}
			placed[name] = true
			view.Fields = append(view.Fields, newFormField(f, values, coerced))
		}
		if len(view.Fields) > 0 {
			views = append(views, view)
		}
	}

	if mode == ModeAdvanced {
		other := formSectionView{Title: "Other"}
		for _, f := range schema.Fields() {
			if !placed[f.Name] {
				other.Fields = append(other.Fields, newFormField(f, values, coerced))
			}
		}
		if len(other.Fields) > 0 {
			views = append(views, other)
		}
	}
	return views
}

// coercedValues 以宽松规则归一化提交值，使下拉框与实际特征值一致
func coercedValues(schema *ml.Schema, values url.Values) map[string]float64 {
	if len(values) == 0 {
		return nil
	}
	answers := make(ml.AnswerSet)
	for _, name := range schema.Names() {
		if v := values.Get(name); v != "" {
			answers[name] = v
		}
	}
	row, err := ml.NewRowBuilder(schema).Build(answers)
	if err != nil {
		return nil
	}
	return row.Map()
}

func newFormField(f ml.Field, values url.Values, coerced map[string]float64) formField {
	field := formField{
		Name:  f.Name,
		Label: f.Label,
		Help:  f.Help,
		Value: formatNumber(f.Default),
		Step:  "1",
	}
	if field.Label == "" {
		field.Label = f.Name
	}
	if v := values.Get(f.Name); v != "" {
		field.Value = v
	}
	if f.Bound.Min != nil {
		field.Min = formatNumber(*f.Bound.Min)
	}
	if f.Bound.Max != nil {
		field.Max = formatNumber(*f.Bound.Max)
	}

	switch {
	case f.Kind == ml.KindBinary:
		field.Widget = "binary"
		if v, ok := coerced[f.Name]; ok {
			field.Value = formatNumber(v)
		}
	case f.Name == "GenHlth":
		field.Widget = "slider"
	default:
		field.Widget = "number"
	}
	if f.Kind == ml.KindFloat {
		field.Step = "0.1"
	}
	return field
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}

// formatPercent 将概率限制在[0,1]后格式化为百分比
func formatPercent(p float64) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return fmt.Sprintf("%.1f%%", p*100)
}
