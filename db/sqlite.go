package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mobileprice/ml"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionRecord is one row of prediction history.
type PredictionRecord struct {
	ID            int64            `json:"id"`
	Class         int              `json:"class"`
	Label         string           `json:"label"`
	SchemaVersion string           `json:"schema_version"`
	Features      ml.FeatureVector `json:"features"`
	CreatedAt     time.Time        `json:"created_at"`
}

// PredictionStore keeps prediction history in SQLite.
type PredictionStore struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*PredictionStore, error) {
	if path == "" {
		return nil, errors.New("database path required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	// sqlite serializes writers anyway; one connection also keeps :memory: shared.
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        predicted_class INTEGER NOT NULL,
        label TEXT NOT NULL,
        schema_version TEXT NOT NULL,
        features TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &PredictionStore{db: database}, nil
}

func (s *PredictionStore) Close() error {
	return s.db.Close()
}

// SavePrediction appends a prediction and returns its row id.
func (s *PredictionStore) SavePrediction(p ml.Prediction) (int64, error) {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`
        INSERT INTO predictions (predicted_class, label, schema_version, features, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		int(p.Class), p.Label, ml.FeatureSchemaVersion, string(features), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentPredictions returns the newest records first.
func (s *PredictionStore) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
        SELECT id, predicted_class, label, schema_version, features, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var (
			r        PredictionRecord
			features string
		)
		if err := rows.Scan(&r.ID, &r.Class, &r.Label, &r.SchemaVersion, &features, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, fmt.Errorf("prediction %d: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByLabel summarizes history per label.
func (s *PredictionStore) CountByLabel() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT label, COUNT(*) FROM predictions GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
