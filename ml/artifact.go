package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const ArtifactFormatVersion = 1

// Artifact is a trained classifier bundled with the column order it was
// trained on and the name of its target.
type Artifact struct {
	Target    string
	Columns   []string
	Threshold float64
	Model     Classifier

	// Digest is the hex SHA-256 of the artifact file contents.
	Digest   string
	Path     string
	LoadedAt time.Time

	schema *Schema
}

type artifactFile struct {
	FormatVersion int             `json:"format_version"`
	Target        string          `json:"target,omitempty"`
	Columns       []string        `json:"columns"`
	Threshold     float64         `json:"threshold,omitempty"`
	Model         json.RawMessage `json:"model"`
}

func NewArtifact(target string, columns []string, threshold float64, model Classifier) (*Artifact, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if target == "" {
		target = DefaultTarget
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	if dt, ok := model.(*DecisionTree); ok && dt.Features == 0 {
		dt.Features = len(columns)
		if err := dt.validate(); err != nil {
			return nil, err
		}
	}
	if n := model.NumFeatures(); n != len(columns) {
		return nil, fmt.Errorf("%w: model expects %d features, artifact lists %d columns", ErrSchemaMismatch, n, len(columns))
	}
	schema, err := SchemaForColumns(target, columns)
	if err != nil {
		return nil, err
	}
	if lr, ok := model.(*LogisticRegression); ok {
		lr.Threshold = threshold
	}
	return &Artifact{
		Target:    target,
		Columns:   append([]string(nil), columns...),
		Threshold: threshold,
		Model:     model,
		schema:    schema,
	}, nil
}

// Schema returns the feature schema implied by the artifact's columns.
func (a *Artifact) Schema() *Schema { return a.schema }

func (a *Artifact) ModelType() string {
	switch a.Model.(type) {
	case *LogisticRegression:
		return ModelLogisticRegression
	case *DecisionTree:
		return ModelDecisionTree
	default:
		return fmt.Sprintf("%T", a.Model)
	}
}

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", path, err)
	}
	artifact.Path = path
	return artifact, nil
}

func ParseArtifact(data []byte) (*Artifact, error) {
	if err := validateArtifactDocument(data); err != nil {
		return nil, err
	}
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if file.FormatVersion > ArtifactFormatVersion {
		return nil, fmt.Errorf("artifact format version %d is newer than supported %d", file.FormatVersion, ArtifactFormatVersion)
	}
	threshold := file.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	model, err := decodeModel(file.Model, threshold)
	if err != nil {
		return nil, err
	}
	artifact, err := NewArtifact(file.Target, file.Columns, threshold, model)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	artifact.Digest = hex.EncodeToString(sum[:])
	artifact.LoadedAt = time.Now()
	return artifact, nil
}

// SaveArtifact writes the artifact atomically via a temp file and rename.
func SaveArtifact(path string, a *Artifact) error {
	model, err := json.Marshal(a.Model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	payload, err := json.MarshalIndent(artifactFile{
		FormatVersion: ArtifactFormatVersion,
		Target:        a.Target,
		Columns:       a.Columns,
		Threshold:     a.Threshold,
		Model:         model,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
