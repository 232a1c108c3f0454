package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"geoquery/internal/model"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Search     SearchConfig
	OpenSearch OpenSearchConfig
	PostgreSQL PostgreSQLConfig
	OpenAI     OpenAIConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// SQLBackend selects where SQL-target statements are executed.
type SQLBackend string

const (
	// SQLBackendOpenSearch executes SQL through the OpenSearch SQL plugin.
	SQLBackendOpenSearch SQLBackend = "opensearch"
	// SQLBackendPostgres executes SQL against a relational mirror of the index.
	SQLBackendPostgres SQLBackend = "postgres"
)

// SearchConfig holds query generation and execution configuration
type SearchConfig struct {
	Index    string
	PageSize int
	// Target selects the query representation: "dsl" or "sql".
	Target model.QueryTarget
	// SQLBackend only applies when Target is "sql".
	SQLBackend SQLBackend
}

// OpenSearchConfig holds OpenSearch connection configuration
type OpenSearchConfig struct {
	Host        string
	Port        int
	UseSSL      bool
	VerifyCerts bool
	Username    string
	Password    string
}

// PostgreSQLConfig holds the relational mirror configuration
type PostgreSQLConfig struct {
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// OpenAIConfig holds the OpenAI-compatible completion API configuration
type OpenAIConfig struct {
	APIKey      string
	APIBase     string
	ChatModel   string
	Temperature float64
	MaxTokens   int
	Timeout     int
	Enabled     bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Search: SearchConfig{
			Index:      getEnv("SEARCH_INDEX", "rag_neft"),
			PageSize:   getEnvAsInt("SEARCH_PAGE_SIZE", 100),
			Target:     model.QueryTarget(getEnv("QUERY_TARGET", "dsl")),
			SQLBackend: SQLBackend(getEnv("SQL_BACKEND", "opensearch")),
		},
		OpenSearch: OpenSearchConfig{
			Host:        getEnv("OPENSEARCH_HOST", "localhost"),
			Port:        getEnvAsInt("OPENSEARCH_PORT", 9200),
			UseSSL:      getEnvAsBool("OPENSEARCH_USE_SSL", false),
			VerifyCerts: getEnvAsBool("OPENSEARCH_VERIFY_CERTS", false),
			Username:    getEnv("OPENSEARCH_AUTH_USERNAME", ""),
			Password:    getEnv("OPENSEARCH_AUTH_PASSWORD", ""),
		},
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "geofeatures"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			APIBase:     getEnv("OPENAI_API_BASE", "https://gigachat.devices.sberbank.ru/api/v1"),
			ChatModel:   getEnv("OPENAI_CHAT_MODEL", "GigaChat"),
			Temperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 2048),
			Timeout:     getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:     getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	if cfg.Search.Target != model.TargetDSL && cfg.Search.Target != model.TargetSQL {
		return nil, fmt.Errorf("invalid QUERY_TARGET %q: must be dsl or sql", cfg.Search.Target)
	}
	if cfg.Search.SQLBackend != SQLBackendOpenSearch && cfg.Search.SQLBackend != SQLBackendPostgres {
		return nil, fmt.Errorf("invalid SQL_BACKEND %q: must be opensearch or postgres", cfg.Search.SQLBackend)
	}
	if cfg.Search.PageSize <= 0 {
		return nil, fmt.Errorf("SEARCH_PAGE_SIZE must be positive, got %d", cfg.Search.PageSize)
	}

	return cfg, nil
}

// OpenSearchURL returns the base URL of the OpenSearch node
func (c *Config) OpenSearchURL() string {
	scheme := "http"
	if c.OpenSearch.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.OpenSearch.Host, c.OpenSearch.Port)
}

// GetPostgreSQLDSN returns the PostgreSQL connection string
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
		log.Printf("Warning: Invalid boolean value for %s, using default %v", key, defaultValue)
		return defaultValue
	}
	return value
}
