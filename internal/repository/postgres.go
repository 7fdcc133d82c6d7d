package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"carmatch/internal/model"
)

// logTimeout bounds the background inserts made by LogTurn.
const logTimeout = 5 * time.Second

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id  TEXT PRIMARY KEY,
	preferences JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS turn_logs (
	id               BIGSERIAL PRIMARY KEY,
	session_id       TEXT NOT NULL,
	user_text        TEXT NOT NULL,
	mode             TEXT NOT NULL,
	stage            TEXT NOT NULL,
	candidate_ids    TEXT[] NOT NULL DEFAULT '{}',
	response_time_ms INTEGER NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS vehicle_feedback (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	vehicle_id TEXT NOT NULL,
	action     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresRepository stores sessions, turn logs and feedback, and can serve
// as the catalog source.
type PostgresRepository struct {
	db  *sqlx.DB
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresRepositoryFromDB(db), nil
}

// NewPostgresRepositoryFromDB wraps an open connection.
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, log: zap.NewNop(), now: time.Now}
}

// SetSessionTTL makes sessions untouched for longer than ttl load as empty.
func (r *PostgresRepository) SetSessionTTL(ttl time.Duration) {
	r.ttl = ttl
}

// SetLogger sets the logger used by background writes.
func (r *PostgresRepository) SetLogger(log *zap.Logger) {
	r.log = log.Named("postgres")
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the session and log tables when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

type sessionRow struct {
	Preferences model.Preferences `db:"preferences"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// Load returns the stored preferences, or nil when the session is unknown
// or has expired.
func (r *PostgresRepository) Load(ctx context.Context, sessionID string) (*model.Preferences, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT preferences, updated_at FROM chat_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if r.ttl > 0 && r.now().Sub(row.UpdatedAt) > r.ttl {
		return nil, nil
	}
	return &row.Preferences, nil
}

// Save upserts the session.
func (r *PostgresRepository) Save(ctx context.Context, sessionID string, prefs *model.Preferences) error {
	query := `
		INSERT INTO chat_sessions (session_id, preferences, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, *prefs); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear deletes the session.
func (r *PostgresRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// InsertTurn writes one turn log row.
func (r *PostgresRepository) InsertTurn(ctx context.Context, turn model.TurnLog) error {
	query := `
		INSERT INTO turn_logs (session_id, user_text, mode, stage, candidate_ids, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, turn.SessionID, turn.UserText, turn.Mode, string(turn.Stage), pq.Array(turn.CandidateIDs), turn.ResponseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to log turn: %w", err)
	}
	return nil
}

// LogTurn writes the turn in the background so the reply is not delayed.
func (r *PostgresRepository) LogTurn(_ context.Context, turn model.TurnLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
		defer cancel()
		if err := r.InsertTurn(ctx, turn); err != nil {
			r.log.Warn("turn log dropped", zap.String("session_id", turn.SessionID), zap.Error(err))
		}
	}()
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, sessionID, vehicleID, action string) error {
	query := `INSERT INTO vehicle_feedback (session_id, vehicle_id, action) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, vehicleID, action); err != nil {
		return fmt.Errorf("failed to log feedback: %w", err)
	}
	return nil
}

type vehicleRow struct {
	model.Vehicle
	Embedding *pgvector.Vector `db:"embedding"`
}

// LoadVehicles reads the catalog table with its embeddings. A NULL
// embedding yields a nil vector at that position.
func (r *PostgresRepository) LoadVehicles(ctx context.Context) ([]model.Vehicle, [][]float32, error) {
	query := `
		SELECT
			id::text AS id, full_name, COALESCE(make, '') AS make, COALESCE(series, '') AS series,
			year, price_thb, engine_l, engine_cc, horsepower_hp,
			COALESCE(fuel_type, '') AS fuel_type, gears, COALESCE(gearbox, '') AS gearbox,
			COALESCE(drive, '') AS drive, COALESCE(body_type, '') AS body_type,
			COALESCE(description, '') AS description, embedding
		FROM vehicles
		WHERE price_thb IS NOT NULL
		ORDER BY id
	`
	var rows []vehicleRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, nil, fmt.Errorf("failed to load vehicles: %w", err)
	}

	vehicles := make([]model.Vehicle, len(rows))
	embeddings := make([][]float32, len(rows))
	for i, row := range rows {
		vehicles[i] = row.Vehicle
		if row.Embedding != nil {
			embeddings[i] = row.Embedding.Slice()
		}
	}
	return vehicles, embeddings, nil
}

// BatchUpdateEmbeddings stores embeddings for several vehicles in one
// transaction, returning how many were written and per-item errors.
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE vehicles SET embedding = $1 WHERE id::text = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.VehicleID); err != nil {
			errs = append(errs, fmt.Sprintf("vehicle %s: %v", item.VehicleID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}
	return success, errs
}
