package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"carmatch/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id  TEXT PRIMARY KEY,
	preferences TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turn_logs (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	user_text        TEXT NOT NULL,
	mode             TEXT NOT NULL,
	stage            TEXT NOT NULL,
	candidate_ids    TEXT NOT NULL DEFAULT '',
	response_time_ms INTEGER NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turn_logs_session ON turn_logs(session_id, id);
CREATE TABLE IF NOT EXISTS vehicle_feedback (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	vehicle_id TEXT NOT NULL,
	action     TEXT NOT NULL,
	created_at TEXT NOT NULL
);`

// SQLiteRepository is a single-file session store with turn and feedback
// logs, for running without a database server.
type SQLiteRepository struct {
	db  *sqlx.DB
	ttl time.Duration
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteRepository opens or creates the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	r := &SQLiteRepository{
		db:      db,
		log:     zap.NewNop(),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

// SetSessionTTL makes sessions untouched for longer than ttl load as empty.
func (r *SQLiteRepository) SetSessionTTL(ttl time.Duration) {
	r.ttl = ttl
}

// SetLogger sets the logger used by background writes.
func (r *SQLiteRepository) SetLogger(log *zap.Logger) {
	r.log = log.Named("sqlite")
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(r.now()), r.entropy).String()
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *SQLiteRepository) Load(ctx context.Context, sessionID string) (*model.Preferences, error) {
	var row struct {
		Preferences model.Preferences `db:"preferences"`
		UpdatedAt   string            `db:"updated_at"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT preferences, updated_at FROM chat_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if r.ttl > 0 {
		updated, err := time.Parse(time.RFC3339Nano, row.UpdatedAt)
		if err == nil && r.now().Sub(updated) > r.ttl {
			return nil, nil
		}
	}
	return &row.Preferences, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, sessionID string, prefs *model.Preferences) error {
	data, err := prefs.Value()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, preferences, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET preferences = excluded.preferences, updated_at = excluded.updated_at`,
		sessionID, string(data.([]byte)), r.timestamp())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// InsertTurn writes one turn log row keyed by a time-ordered ULID.
func (r *SQLiteRepository) InsertTurn(ctx context.Context, turn model.TurnLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO turn_logs (id, session_id, user_text, mode, stage, candidate_ids, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.newID(), turn.SessionID, turn.UserText, turn.Mode, string(turn.Stage),
		strings.Join(turn.CandidateIDs, ","), turn.ResponseTimeMs, r.timestamp())
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// LogTurn writes the turn in the background.
func (r *SQLiteRepository) LogTurn(_ context.Context, turn model.TurnLog) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
		defer cancel()
		if err := r.InsertTurn(ctx, turn); err != nil {
			r.log.Warn("turn log dropped", zap.String("session_id", turn.SessionID), zap.Error(err))
		}
	}()
}

// Turns returns the logged turns of a session, oldest first.
func (r *SQLiteRepository) Turns(ctx context.Context, sessionID string) ([]model.TurnLog, error) {
	var rows []struct {
		SessionID      string `db:"session_id"`
		UserText       string `db:"user_text"`
		Mode           string `db:"mode"`
		Stage          string `db:"stage"`
		CandidateIDs   string `db:"candidate_ids"`
		ResponseTimeMs int    `db:"response_time_ms"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT session_id, user_text, mode, stage, candidate_ids, response_time_ms
		FROM turn_logs WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	turns := make([]model.TurnLog, 0, len(rows))
	for _, row := range rows {
		var ids []string
		if row.CandidateIDs != "" {
			ids = strings.Split(row.CandidateIDs, ",")
		}
		turns = append(turns, model.TurnLog{
			SessionID:      row.SessionID,
			UserText:       row.UserText,
			Mode:           row.Mode,
			Stage:          model.Stage(row.Stage),
			CandidateIDs:   ids,
			ResponseTimeMs: row.ResponseTimeMs,
		})
	}
	return turns, nil
}

// LogFeedback records an action on a recommended vehicle.
func (r *SQLiteRepository) LogFeedback(ctx context.Context, sessionID, vehicleID, action string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicle_feedback (id, session_id, vehicle_id, action, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.newID(), sessionID, vehicleID, action, r.timestamp())
	if err != nil {
		return fmt.Errorf("log feedback: %w", err)
	}
	return nil
}
