// Package app wires configuration into the catalog, stores and dialogue
// shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"carmatch/internal/catalog"
	"carmatch/internal/config"
	"carmatch/internal/repository"
	"carmatch/internal/service"
)

// FeedbackLogger records user actions on recommended vehicles.
type FeedbackLogger interface {
	LogFeedback(ctx context.Context, sessionID, vehicleID, action string) error
}

// Backend holds the resources selected by configuration.
type Backend struct {
	Catalog  *catalog.Catalog
	Sessions service.SessionStore
	Turns    service.TurnLogger
	Feedback FeedbackLogger
	AI       *service.OpenAIClient

	postgres *repository.PostgresRepository
	sqlite   *repository.SQLiteRepository
}

// Open connects the configured stores and loads the catalog. A missing or
// empty catalog is an error.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Backend, error) {
	b := &Backend{AI: service.NewOpenAIClient(&cfg.OpenAI, log)}

	if cfg.NeedsPostgres() {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		repo.SetLogger(log)
		b.postgres = repo
		log.Info("connected to PostgreSQL")
	}

	if err := b.openSessions(ctx, cfg, log); err != nil {
		b.Close()
		return nil, err
	}

	cat, err := b.loadCatalog(ctx, cfg)
	if err != nil {
		b.Close()
		return nil, err
	}
	if cat.Len() == 0 {
		b.Close()
		return nil, errors.New("catalog has no usable vehicles")
	}
	b.Catalog = cat
	log.Info("catalog loaded",
		zap.String("source", cfg.Catalog.Source),
		zap.Int("vehicles", cat.Len()),
		zap.Int("skipped_rows", cat.SkippedRows()),
		zap.Int("dimension", cat.Dimension()),
	)
	if !b.AI.IsEnabled() {
		log.Warn("OpenAI is disabled; questions and explanations use templates, ranking is price-sorted",
			zap.String("hint", "set OPENAI_API_KEY to enable AI features"))
	}
	return b, nil
}

func (b *Backend) openSessions(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	switch cfg.Session.Store {
	case "postgres":
		if err := b.postgres.Migrate(ctx); err != nil {
			return err
		}
		b.postgres.SetSessionTTL(cfg.Session.TTL)
		b.Sessions = b.postgres
		b.Turns = b.postgres
		b.Feedback = b.postgres
	case "sqlite":
		repo, err := repository.NewSQLiteRepository(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		repo.SetSessionTTL(cfg.Session.TTL)
		repo.SetLogger(log)
		b.sqlite = repo
		b.Sessions = repo
		b.Turns = repo
		b.Feedback = repo
	default:
		b.Sessions = service.NewMemorySessionStore(cfg.Session.TTL)
		b.Feedback = logFeedback{log: log.Named("feedback")}
	}
	if !cfg.Session.LogTurn {
		b.Turns = nil
	}
	log.Info("session store ready", zap.String("store", cfg.Session.Store), zap.Duration("ttl", cfg.Session.TTL))
	return nil
}

func (b *Backend) loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Source == "postgres" {
		vehicles, embeddings, err := b.postgres.LoadVehicles(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.New(vehicles, embeddings), nil
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", cfg.Catalog.Path, err)
	}
	return cat, nil
}

// NewDialogue builds the conversation service over the backend.
func (b *Backend) NewDialogue(cfg *config.Config, log *zap.Logger) (*service.Dialogue, error) {
	questions, err := service.LoadQuestionBank()
	if err != nil {
		return nil, err
	}
	d := service.NewDialogue(b.Catalog, b.AI, b.Sessions, questions, cfg.Ranking, cfg.Dialogue, log)
	if b.Turns != nil {
		d.SetTurnLogger(b.Turns)
	}
	return d, nil
}

// Close releases database handles.
func (b *Backend) Close() {
	if b.postgres != nil {
		b.postgres.Close()
	}
	if b.sqlite != nil {
		b.sqlite.Close()
	}
}

// logFeedback writes feedback to the log when no database is configured.
type logFeedback struct {
	log *zap.Logger
}

func (l logFeedback) LogFeedback(_ context.Context, sessionID, vehicleID, action string) error {
	l.log.Info("feedback",
		zap.String("session_id", sessionID),
		zap.String("vehicle_id", vehicleID),
		zap.String("action", action),
	)
	return nil
}
