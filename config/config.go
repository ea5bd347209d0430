package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env         string
	ServerPort  int
	LogLevel    string
	CORSOrigins []string
	Database    DatabaseConfig
	Session     SessionConfig
	MQ          MQConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
	// Path is the database file used by the sqlite driver.
	Path string
}

type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// MQConfig selects the broker used for post lifecycle events.
// Backend is one of "none", "rabbitmq" or "pubsub".
type MQConfig struct {
	Backend           string
	PostEventsChannel string
	RabbitMQ          RabbitMQConfig
	PubSub            PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Driver:   strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "blog"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "blog_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
		Path:     getEnv("DB_PATH", "./data/blog.sqlite"),
	}

	sessionConfig := SessionConfig{
		Secret:     strings.TrimSpace(getEnv("SESSION_SECRET", "")),
		CookieName: getEnv("SESSION_COOKIE_NAME", "session"),
		TTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		Secure:     getEnvBool("SESSION_SECURE", false),
	}

	mqConfig := MQConfig{
		Backend:           strings.ToLower(getEnv("MQ_BACKEND", "none")),
		PostEventsChannel: getEnv("MQ_POST_EVENTS_CHANNEL", "posts"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
		},
		PubSub: PubSubConfig{
			ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile: getEnv("PUBSUB_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		Env:         getEnv("ENV", "prod"),
		ServerPort:  getEnvInt("SERVER_PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Database:    dbConfig,
		Session:     sessionConfig,
		MQ:          mqConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(valueStr))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
