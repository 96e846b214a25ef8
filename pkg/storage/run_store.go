package storage

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run is a persisted, immutable record of one completed modeling attempt.
// Regression-family runs store R² in Accuracy by convention.
type Run struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Accuracy        float64   `json:"accuracy"`
	Precision       *float64  `json:"precision,omitempty"`
	Recall          *float64  `json:"recall,omitempty"`
	F1Score         *float64  `json:"f1Score,omitempty"`
	ModelType       string    `json:"modelType,omitempty"`
	DatasetRows     *int      `json:"datasetRows,omitempty"`
	DatasetColumns  *int      `json:"datasetColumns,omitempty"`
	DatasetFeatures []string  `json:"datasetFeatures,omitempty"`
	ConfusionMatrix [][]int   `json:"confusionMatrix,omitempty"`
	Stdout          string    `json:"stdout,omitempty"`
	Error           string    `json:"error,omitempty"`
	IsImproved      bool      `json:"isImproved"`
	Explanation     string    `json:"explanation,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateRun appends a run to the session's log. The owning session must
// exist; ErrNotFound is returned otherwise (no auto-recreate).
func (s *Store) CreateRun(run *Run) (*Run, error) {
	if run == nil {
		return nil, fmt.Errorf("run is nil")
	}
	if strings.TrimSpace(run.SessionID) == "" {
		return nil, fmt.Errorf("run requires a session id")
	}

	if _, err := s.GetSession(run.SessionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	saved := *run
	saved.ID = ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	saved.CreatedAt = now
	if strings.TrimSpace(saved.Name) == "" {
		saved.Name = "Run " + now.Format("15:04:05")
	}

	features, err := marshalNullable(saved.DatasetFeatures)
	if err != nil {
		return nil, fmt.Errorf("serialize features: %w", err)
	}
	matrix, err := marshalNullable(saved.ConfusionMatrix)
	if err != nil {
		return nil, fmt.Errorf("serialize confusion matrix: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (
			run_id, session_id, name, code, accuracy,
			precision_score, recall, f1_score, model_type,
			dataset_rows, dataset_columns, dataset_features, confusion_matrix,
			stdout, error, is_improved, explanation, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.SessionID, saved.Name, saved.Code, saved.Accuracy,
		nullableFloat(saved.Precision), nullableFloat(saved.Recall), nullableFloat(saved.F1Score), saved.ModelType,
		nullableInt(saved.DatasetRows), nullableInt(saved.DatasetColumns), features, matrix,
		saved.Stdout, saved.Error, saved.IsImproved, saved.Explanation, saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	// Saving a run is the only action that touches a session after creation.
	_ = s.TouchSession(saved.SessionID)

	return &saved, nil
}

// ListRunsBySession returns the session's runs sorted by accuracy descending
// (the persisted-run leaderboard order). ErrNotFound when the session is
// unknown.
func (s *Store) ListRunsBySession(sessionID string) ([]Run, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT run_id, session_id, name, code, accuracy,
		       precision_score, recall, f1_score, model_type,
		       dataset_rows, dataset_columns, dataset_features, confusion_matrix,
		       stdout, error, is_improved, explanation, created_at
		FROM runs
		WHERE session_id = ?
		ORDER BY accuracy DESC, created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches a single run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, session_id, name, code, accuracy,
		       precision_score, recall, f1_score, model_type,
		       dataset_rows, dataset_columns, dataset_features, confusion_matrix,
		       stdout, error, is_improved, explanation, created_at
		FROM runs WHERE run_id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var precision, recall, f1 sql.NullFloat64
	var modelType, features, matrix, stdout, errText, explanation sql.NullString
	var datasetRows, datasetColumns sql.NullInt64

	err := row.Scan(
		&run.ID, &run.SessionID, &run.Name, &run.Code, &run.Accuracy,
		&precision, &recall, &f1, &modelType,
		&datasetRows, &datasetColumns, &features, &matrix,
		&stdout, &errText, &run.IsImproved, &explanation, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if precision.Valid {
		run.Precision = &precision.Float64
	}
	if recall.Valid {
		run.Recall = &recall.Float64
	}
	if f1.Valid {
		run.F1Score = &f1.Float64
	}
	if modelType.Valid {
		run.ModelType = modelType.String
	}
	if datasetRows.Valid {
		v := int(datasetRows.Int64)
		run.DatasetRows = &v
	}
	if datasetColumns.Valid {
		v := int(datasetColumns.Int64)
		run.DatasetColumns = &v
	}
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &run.DatasetFeatures); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
	}
	if matrix.Valid && matrix.String != "" {
		if err := json.Unmarshal([]byte(matrix.String), &run.ConfusionMatrix); err != nil {
			return nil, fmt.Errorf("decode confusion matrix: %w", err)
		}
	}
	if stdout.Valid {
		run.Stdout = stdout.String
	}
	if errText.Valid {
		run.Error = errText.String
	}
	if explanation.Valid {
		run.Explanation = explanation.String
	}
	return &run, nil
}

func marshalNullable(v any) (any, error) {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return nil, nil
		}
	case [][]int:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
