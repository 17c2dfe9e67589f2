package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"riskscreen/ml"
)

// Store persists served predictions and training runs in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY,
        mode VARCHAR(20),
        columns TEXT NOT NULL,
        feature_row TEXT NOT NULL,
        predicted_label INTEGER NOT NULL,
        probability REAL,
        model_digest VARCHAR(64),
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY,
        model_name VARCHAR(50),
        accuracy REAL,
        precision REAL,
        recall REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    `

// Open initializes the SQLite database at path, creating tables as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type PredictionRecord struct {
	ID          string        `json:"id"`
	Mode        string        `json:"mode"`
	Row         ml.FeatureRow `json:"row"`
	Label       int           `json:"label"`
	Probability *float64      `json:"probability,omitempty"`
	ModelDigest string        `json:"model_digest"`
	CreatedAt   time.Time     `json:"created_at"`
}

// SavePrediction stores one served prediction. Missing ID and CreatedAt are filled in.
func (s *Store) SavePrediction(ctx context.Context, record *PredictionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	columns, err := json.Marshal(record.Row.Columns)
	if err != nil {
		return err
	}
	values, err := json.Marshal(record.Row.Values)
	if err != nil {
		return err
	}
	var probability sql.NullFloat64
	if record.Probability != nil {
		probability = sql.NullFloat64{Float64: *record.Probability, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO predictions (
            id, mode, columns, feature_row, predicted_label, probability, model_digest, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Mode, string(columns), string(values), record.Label, probability,
		record.ModelDigest, record.CreatedAt)
	return err
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, mode, columns, feature_row, predicted_label, probability, model_digest, created_at
        FROM predictions
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var (
			r                 PredictionRecord
			columns, values   string
			probability       sql.NullFloat64
			mode, modelDigest sql.NullString
		)
		if err := rows.Scan(&r.ID, &mode, &columns, &values, &r.Label, &probability, &modelDigest, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(columns), &r.Row.Columns); err != nil {
			return nil, fmt.Errorf("decode columns of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(values), &r.Row.Values); err != nil {
			return nil, fmt.Errorf("decode row of %s: %w", r.ID, err)
		}
		if probability.Valid {
			p := probability.Float64
			r.Probability = &p
		}
		r.Mode = mode.String
		r.ModelDigest = modelDigest.String
		records = append(records, r)
	}
	return records, rows.Err()
}

type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (model_name, accuracy, precision, recall, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.Accuracy, entry.Precision, entry.Recall, entry.TrainedAt, entry.DataPoints)
	return err
}

func (s *Store) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, accuracy, precision, recall, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Accuracy, &log.Precision, &log.Recall, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
