package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	SQLite     SQLiteConfig
	Server     ServerConfig
	Session    SessionConfig
	Catalog    CatalogConfig
	Ranking    RankingConfig
	Dialogue   DialogueConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// SQLiteConfig holds the single-file store location
type SQLiteConfig struct {
	Path string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	Host            string
	GinMode         string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// SessionConfig selects where conversation state lives between turns
type SessionConfig struct {
	Store   string // memory | postgres | sqlite
	TTL     time.Duration
	LogTurn bool
}

// CatalogConfig selects the vehicle table source
type CatalogConfig struct {
	Source string // csv | postgres
	Path   string
}

// RankingConfig holds retrieval sizing
type RankingConfig struct {
	TopN                int
	CandidateMultiplier int
	CandidateFloor      int
}

// DialogueConfig holds conversation tuning
type DialogueConfig struct {
	MaxQuestionRunes int
	Seed             int64 // 0 means seed each conversation from the clock
	ExplainTimeout   time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "carmatch"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "carmatch.db"),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:         getEnv("GIN_MODE", "release"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			Store:   strings.ToLower(getEnv("SESSION_STORE", "memory")),
			TTL:     getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			LogTurn: getEnvAsBool("SESSION_LOG_TURNS", true),
		},
		Catalog: CatalogConfig{
			Source: strings.ToLower(getEnv("CATALOG_SOURCE", "csv")),
			Path:   getEnv("CATALOG_PATH", "data/catalog.csv"),
		},
		Ranking: RankingConfig{
			TopN:                getEnvAsInt("RANK_TOP_N", 5),
			CandidateMultiplier: getEnvAsInt("RANK_CANDIDATE_MULTIPLIER", 50),
			CandidateFloor:      getEnvAsInt("RANK_CANDIDATE_FLOOR", 200),
		},
		Dialogue: DialogueConfig{
			MaxQuestionRunes: getEnvAsInt("DIALOGUE_MAX_QUESTION_RUNES", 120),
			Seed:             int64(getEnvAsInt("DIALOGUE_SEED", 0)),
			ExplainTimeout:   getEnvAsDuration("DIALOGUE_EXPLAIN_TIMEOUT", 20*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.6),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 700),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 0),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", ""),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	switch c.Session.Store {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid SESSION_STORE %q: must be memory, postgres or sqlite", c.Session.Store)
	}
	switch c.Catalog.Source {
	case "csv", "postgres":
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q: must be csv or postgres", c.Catalog.Source)
	}
	if c.Ranking.TopN <= 0 {
		return fmt.Errorf("RANK_TOP_N must be positive, got %d", c.Ranking.TopN)
	}
	if c.OpenAI.BatchSize <= 0 {
		c.OpenAI.BatchSize = 100
	}
	return nil
}

// NeedsPostgres reports whether any component reads from PostgreSQL
func (c *Config) NeedsPostgres() bool {
	return c.Session.Store == "postgres" || c.Catalog.Source == "postgres"
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid bool value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
