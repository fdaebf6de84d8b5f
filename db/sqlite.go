package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an operation references a prediction id
// that does not exist.
var ErrNotFound = errors.New("prediction not found")

// Prediction is one persisted prediction: the request inputs plus the
// label the classifier produced. Records are append-only; they are never
// updated, only inserted and deleted whole.
type Prediction struct {
	ID               int64   `json:"id"`
	Team1Strength    float64 `json:"team1_strength"`
	Team2Strength    float64 `json:"team2_strength"`
	WeatherCondition int     `json:"weather_condition"`
	PredictedWinner  string  `json:"predicted_winner"`
}

// Store is the SQLite-backed prediction record store. The underlying
// *sql.DB pool handles per-request connection scoping.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// predictions table exists.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        team1_strength REAL NOT NULL,
        team2_strength REAL NOT NULL,
        weather_condition INTEGER NOT NULL,
        predicted_winner TEXT NOT NULL
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create predictions table: %w", err)
	}

	return &Store{db: database}, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a new prediction record and returns it with the id the
// store assigned. The write runs in its own transaction so the caller only
// sees the record once it is committed.
func (s *Store) Insert(ctx context.Context, rec Prediction) (Prediction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Prediction{}, err
	}

	result, err := tx.ExecContext(ctx, `
        INSERT INTO predictions (team1_strength, team2_strength, weather_condition, predicted_winner)
        VALUES (?, ?, ?, ?)`,
		rec.Team1Strength, rec.Team2Strength, rec.WeatherCondition, rec.PredictedWinner)
	if err != nil {
		tx.Rollback()
		return Prediction{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return Prediction{}, err
	}

	if err := tx.Commit(); err != nil {
		return Prediction{}, err
	}

	rec.ID = id
	return rec, nil
}

// ListAll returns every stored prediction in insertion order. The result
// is never nil so an empty store serializes as an empty JSON array.
func (s *Store) ListAll(ctx context.Context) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, team1_strength, team2_strength, weather_condition, predicted_winner
        FROM predictions
        ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := make([]Prediction, 0)
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.ID, &p.Team1Strength, &p.Team2Strength, &p.WeatherCondition, &p.PredictedWinner); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

// Delete removes the prediction with the given id. It returns ErrNotFound
// when no such record exists; the delete is permanent.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM predictions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
