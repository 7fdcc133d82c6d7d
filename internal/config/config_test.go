package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("CATALOG_SOURCE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5, cfg.Ranking.TopN)
	assert.Equal(t, 120, cfg.Dialogue.MaxQuestionRunes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.OpenAI.Enabled)
	assert.False(t, cfg.NeedsPostgres())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SESSION_STORE", "Postgres")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("RANK_TOP_N", "3")
	t.Setenv("DIALOGUE_SEED", "42")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("SESSION_LOG_TURNS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OpenAI.Enabled)
	assert.Equal(t, "postgres", cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 3, cfg.Ranking.TopN)
	assert.Equal(t, int64(42), cfg.Dialogue.Seed)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Session.LogTurn)
	assert.True(t, cfg.NeedsPostgres())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("RANK_TOP_N", "five")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("OPENAI_CHAT_TEMPERATURE", "hot")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Ranking.TopN)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 0.6, cfg.OpenAI.ChatTemperature)
}

func TestLoad_InvalidStore(t *testing.T) {
	t.Setenv("SESSION_STORE", "redis")
	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_STORE")
}

func TestGetPostgreSQLDSN(t *testing.T) {
	cfg := &Config{PostgreSQL: PostgreSQLConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "cars", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=cars sslmode=disable", cfg.GetPostgreSQLDSN())

	cfg.PostgreSQL.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.GetPostgreSQLDSN())
}
