package config

import (
	"fmt"
	"net/url"
	"os"
)

// Settings groups connection parameters for the database, the cache, the
// audit sink and the HTTP server. Everything is read from the environment
// with local-development defaults.
type Settings struct {
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	QuestDBHost     string
	QuestDBPort     string
	QuestDBUser     string
	QuestDBPassword string
	QuestDBTable    string

	ListenAddr string

	MetricsEnabled   bool
	MetricsNamespace string
}

// Load reads settings from environment variables, falling back to defaults
// suitable for local development.
func Load() Settings {
	return Settings{
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", ""),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		PostgresDB:       getenv("POSTGRES_DB", "api_test"),

		RedisHost:     getenv("REDIS_HOST", "localhost"),
		RedisPort:     getenv("REDIS_PORT", "6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		QuestDBHost:     getenv("QUESTDB_HOST", "localhost"),
		QuestDBPort:     getenv("QUESTDB_PORT", "9000"),
		QuestDBUser:     getenv("QUESTDB_USER", ""),
		QuestDBPassword: getenv("QUESTDB_PASSWORD", ""),
		QuestDBTable:    getenv("QUESTDB_DB", "logs"),

		ListenAddr: getenv("LISTEN_ADDR", ":8080"),

		MetricsEnabled:   os.Getenv("METRICS_ENABLED") == "true",
		MetricsNamespace: getenv("METRICS_NAMESPACE", "CachedUserAPI"),
	}
}

// PostgresDSN builds a lib/pq connection string.
func (s Settings) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(s.PostgresUser),
		url.QueryEscape(s.PostgresPassword),
		s.PostgresHost,
		s.PostgresPort,
		s.PostgresDB,
	)
}

// RedisAddr returns the host:port pair for the redis client.
func (s Settings) RedisAddr() string {
	return s.RedisHost + ":" + s.RedisPort
}

// QuestDBAddr returns the host:port pair for the ILP/HTTP sender.
func (s Settings) QuestDBAddr() string {
	return s.QuestDBHost + ":" + s.QuestDBPort
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
